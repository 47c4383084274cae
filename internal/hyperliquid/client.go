// Package hyperliquid implements the exchange order gateway: fetching
// open orders, canceling orders, and placing reduce-only trigger orders
// against the Hyperliquid info and exchange endpoints.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	infoPath     = "/info"
	exchangePath = "/exchange"
)

// ActionRecorder receives a fire-and-forget record of every exchange
// call; implementations must never block the caller.
type ActionRecorder interface {
	Record(action, status, symbol string, request, response interface{}, errMsg string)
}

// Config holds client construction parameters.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the exchange. It performs no retries: transient
// failures surface as *NetworkError and the caller decides whether the
// next decision cycle retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *Signer
	logger     zerolog.Logger
	recorder   ActionRecorder

	metaMu sync.Mutex
	meta   map[string]assetMeta // symbol -> asset index + size precision
}

// NewClient creates an exchange client. The signer may be nil for
// read-only use (info endpoints only).
func NewClient(cfg Config, signer *Signer, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		signer:     signer,
		logger:     logger.With().Str("component", "hyperliquid").Logger(),
		meta:       make(map[string]assetMeta),
	}
}

// SetRecorder attaches the audit recorder. A nil recorder disables
// recording.
func (c *Client) SetRecorder(r ActionRecorder) { c.recorder = r }

// FetchOpenOrders returns the wallet's open orders for one symbol.
func (c *Client) FetchOpenOrders(ctx context.Context, wallet, symbol string) ([]RawOrder, error) {
	req := infoRequest{Type: "frontendOpenOrders", User: wallet}

	var all []RawOrder
	if err := c.postInfo(ctx, "fetch_open_orders", req, &all); err != nil {
		c.record("fetch_open_orders", "error", symbol, req, nil, err.Error())
		return nil, err
	}

	orders := make([]RawOrder, 0, len(all))
	for _, o := range all {
		if strings.EqualFold(o.Coin, symbol) {
			orders = append(orders, o)
		}
	}

	c.record("fetch_open_orders", "success", symbol, req, map[string]interface{}{"count": len(orders)}, "")
	return orders, nil
}

// FetchPosition returns the wallet's position for one symbol. The second
// return is false when there is no open position.
func (c *Client) FetchPosition(ctx context.Context, wallet, symbol string) (Position, bool, error) {
	req := infoRequest{Type: "clearinghouseState", User: wallet}

	var state clearinghouseResponse
	if err := c.postInfo(ctx, "fetch_position", req, &state); err != nil {
		return Position{}, false, err
	}

	for _, ap := range state.AssetPositions {
		p := ap.Position
		if !strings.EqualFold(p.Coin, symbol) || p.Szi.Float64() == 0 {
			continue
		}
		return Position{
			Symbol:     p.Coin,
			Size:       p.Szi.Float64(),
			EntryPrice: p.EntryPx.Float64(),
			Leverage:   p.Leverage.Value,
		}, true, nil
	}
	return Position{}, false, nil
}

// CancelOrder cancels one order by id. Canceling an order that no longer
// exists is success: the desired end state (order gone) holds either way.
func (c *Client) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	meta, err := c.assetMeta(ctx, symbol)
	if err != nil {
		return err
	}

	action := cancelAction{
		Type:    "cancel",
		Cancels: []cancelWire{{Asset: meta.index, OID: orderID}},
	}

	resp, err := c.postExchange(ctx, "cancel_order", action)
	if err != nil {
		c.record("cancel_order", "error", symbol, action, nil, err.Error())
		return err
	}

	statuses := resp.Response.Data.Statuses
	if len(statuses) > 0 {
		st := statuses[0]
		switch {
		case st.success:
			c.record("cancel_order", "success", symbol, action, resp, "")
			return nil
		case st.Error != "":
			if cancelStatusIsIdempotent(st.Error) {
				c.logger.Debug().
					Int64("oid", orderID).
					Str("symbol", symbol).
					Str("status", st.Error).
					Msg("Cancel target already gone, treating as success")
				c.record("cancel_order", "success", symbol, action, resp, "")
				return nil
			}
			err := classifyExchangeStatus("cancel_order", symbol, st.Error)
			c.record("cancel_order", "error", symbol, action, resp, st.Error)
			return err
		}
	}

	c.record("cancel_order", "success", symbol, action, resp, "")
	return nil
}

// PlaceTriggerOrder places a reduce-only trigger-market order that closes
// the position when the trigger price is crossed. tpsl is "tp" or "sl".
// A long position's triggers sell; a short's buy.
func (c *Client) PlaceTriggerOrder(ctx context.Context, symbol, tpsl string, triggerPrice, size float64, isLong bool) (int64, error) {
	meta, err := c.assetMeta(ctx, symbol)
	if err != nil {
		return 0, err
	}

	px := FormatPrice(triggerPrice, meta.szDecimals)
	action := orderAction{
		Type: "order",
		Orders: []orderWire{{
			Asset:      meta.index,
			IsBuy:      !isLong,
			LimitPx:    px,
			Sz:         FormatSize(size, meta.szDecimals),
			ReduceOnly: true,
			Type: orderTypeWire{Trigger: &triggerWire{
				TriggerPx: px,
				IsMarket:  true,
				Tpsl:      tpsl,
			}},
			Cloid: newCloid(),
		}},
		Grouping: "na",
	}

	resp, err := c.postExchange(ctx, "create_trigger_order", action)
	if err != nil {
		c.record("create_trigger_order", "error", symbol, action, nil, err.Error())
		return 0, err
	}

	statuses := resp.Response.Data.Statuses
	if len(statuses) == 0 {
		err := &RejectedOrderError{Symbol: symbol, Reason: "empty status list in exchange response"}
		c.record("create_trigger_order", "error", symbol, action, resp, err.Reason)
		return 0, err
	}
	st := statuses[0]
	switch {
	case st.Resting != nil:
		c.record("create_trigger_order", "success", symbol, action, resp, "")
		return st.Resting.OID, nil
	case st.Filled != nil:
		c.record("create_trigger_order", "success", symbol, action, resp, "")
		return st.Filled.OID, nil
	case st.Error != "":
		err := classifyExchangeStatus("create_trigger_order", symbol, st.Error)
		c.record("create_trigger_order", "error", symbol, action, resp, st.Error)
		return 0, err
	default:
		err := &RejectedOrderError{Symbol: symbol, Reason: "unrecognized order status"}
		c.record("create_trigger_order", "error", symbol, action, resp, err.Reason)
		return 0, err
	}
}

// assetMeta resolves the asset index and size precision for a symbol,
// fetching and caching the exchange universe on first use.
func (c *Client) assetMeta(ctx context.Context, symbol string) (assetMeta, error) {
	c.metaMu.Lock()
	defer c.metaMu.Unlock()

	if m, ok := c.meta[strings.ToUpper(symbol)]; ok {
		return m, nil
	}

	var meta metaResponse
	if err := c.postInfo(ctx, "fetch_meta", infoRequest{Type: "meta"}, &meta); err != nil {
		return assetMeta{}, err
	}
	for i, asset := range meta.Universe {
		c.meta[strings.ToUpper(asset.Name)] = assetMeta{index: i, szDecimals: asset.SzDecimals}
	}

	m, ok := c.meta[strings.ToUpper(symbol)]
	if !ok {
		return assetMeta{}, &RejectedOrderError{Symbol: symbol, Reason: "unknown asset"}
	}
	return m, nil
}

func (c *Client) postInfo(ctx context.Context, op string, req, out interface{}) error {
	body, err := c.post(ctx, op, infoPath, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: parse info response: %w", op, err)
	}
	return nil
}

func (c *Client) postExchange(ctx context.Context, op string, action interface{}) (*exchangeResponse, error) {
	if c.signer == nil {
		return nil, &AuthError{Op: op, Reason: "no signing key configured"}
	}

	nonce := time.Now().UnixMilli()
	sig, err := c.signer.SignAction(action, nonce)
	if err != nil {
		return nil, &AuthError{Op: op, Reason: err.Error()}
	}

	body, err := c.post(ctx, op, exchangePath, exchangeRequest{
		Action:    action,
		Nonce:     nonce,
		Signature: sig,
	})
	if err != nil {
		return nil, err
	}

	var resp exchangeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%s: parse exchange response: %w", op, err)
	}
	if resp.Status != "ok" {
		// Top-level rejection: the response field carries the reason as
		// a bare string when status is "err".
		var raw struct {
			Response string `json:"response"`
		}
		reason := "exchange returned status " + resp.Status
		if json.Unmarshal(body, &raw) == nil && raw.Response != "" {
			reason = raw.Response
		}
		return nil, classifyExchangeStatus(op, "", reason)
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, op, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: new request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{Op: op, Reason: strings.TrimSpace(string(body))}
	default:
		// 429 and 5xx are transient; other statuses are treated the same
		// way since the exchange does not document them and the next
		// cycle retries regardless.
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}
}

func (c *Client) record(action, status, symbol string, request, response interface{}, errMsg string) {
	if c.recorder == nil {
		return
	}
	c.recorder.Record(action, status, symbol, request, response, errMsg)
}

// newCloid generates a client order id: 16 random bytes, hex encoded.
func newCloid() string {
	id := uuid.New()
	return "0x" + strings.ReplaceAll(id.String(), "-", "")
}
