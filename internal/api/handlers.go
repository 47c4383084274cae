package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"hyperliquid-trading-bot/internal/orders"
	"hyperliquid-trading-bot/internal/risksync"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
	})
}

type setLevelsRequest struct {
	WalletAddress   string   `json:"walletAddress" binding:"required"`
	Symbol          string   `json:"symbol" binding:"required"`
	TakeProfitPrice *float64 `json:"takeProfitPrice"`
	StopLossPrice   *float64 `json:"stopLossPrice"`
}

func (s *Server) handleSetLevels(c *gin.Context) {
	var req setLevelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TakeProfitPrice != nil && *req.TakeProfitPrice <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "takeProfitPrice must be positive"})
		return
	}
	if req.StopLossPrice != nil && *req.StopLossPrice <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stopLossPrice must be positive"})
		return
	}

	s.levels.Set(req.WalletAddress, req.Symbol, risksync.DesiredLevels{
		TakeProfitPrice: req.TakeProfitPrice,
		StopLossPrice:   req.StopLossPrice,
	})

	s.logger.Info().
		Str("wallet", req.WalletAddress).
		Str("symbol", req.Symbol).
		Msg("Desired levels updated")
	c.JSON(http.StatusOK, gin.H{"status": "stored"})
}

func (s *Server) handleGetLevels(c *gin.Context) {
	wallet, symbol := c.Param("wallet"), c.Param("symbol")

	stored, ok := s.levels.Get(wallet, symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no desired levels set"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"walletAddress":   strings.ToLower(wallet),
		"symbol":          strings.ToUpper(symbol),
		"takeProfitPrice": stored.Levels.TakeProfitPrice,
		"stopLossPrice":   stored.Levels.StopLossPrice,
		"updatedAt":       stored.UpdatedAt,
	})
}

func (s *Server) handleClearLevels(c *gin.Context) {
	s.levels.Clear(c.Param("wallet"), c.Param("symbol"))
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

type reconcileRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
	Symbol        string `json:"symbol" binding:"required"`
}

type legErrorResponse struct {
	Leg      string `json:"leg"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

func (s *Server) handleReconcile(c *gin.Context) {
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stored, ok := s.levels.Get(req.WalletAddress, req.Symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no desired levels set for instrument"})
		return
	}

	position, exists, err := s.positions.FetchPosition(c.Request.Context(), req.WalletAddress, req.Symbol)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "position fetch failed: " + err.Error()})
		return
	}
	if !exists || position.Size == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "no open position for instrument"})
		return
	}

	pos := risksync.PositionContext{
		WalletAddress: req.WalletAddress,
		Symbol:        req.Symbol,
		IsLong:        position.IsLong(),
		PositionSize:  position.AbsSize(),
	}

	result, err := s.engine.Reconcile(c.Request.Context(), pos, stored.Levels)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	legErrs := make([]legErrorResponse, 0, len(result.Errors))
	for _, legErr := range result.Errors {
		legErrs = append(legErrs, legErrorResponse{
			Leg:      string(legErr.Leg),
			Severity: string(legErr.Severity),
			Message:  legErr.Message,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"takeProfitAction": result.TakeProfitAction,
		"stopLossAction":   result.StopLossAction,
		"degraded":         result.Degraded,
		"errors":           legErrs,
	})
}

func (s *Server) handleGetCache(c *gin.Context) {
	entry, ok := s.engine.InspectCache(c.Param("wallet"), c.Param("symbol"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no cached entry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"walletAddress":   entry.WalletAddress,
		"symbol":          entry.Symbol,
		"takeProfitPrice": entry.TakeProfitPrice,
		"stopLossPrice":   entry.StopLossPrice,
		"tpUnprotected":   entry.TPUnprotected,
		"slUnprotected":   entry.SLUnprotected,
		"updatedAtMs":     entry.UpdatedAtMs,
	})
}

func (s *Server) handleGetOrders(c *gin.Context) {
	wallet, symbol := c.Param("wallet"), c.Param("symbol")

	raws, err := s.gateway.FetchOpenOrders(c.Request.Context(), wallet, symbol)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	classified := make([]gin.H, 0, len(raws))
	for _, raw := range raws {
		order, ok := orders.Classify(raw)
		if !ok {
			continue
		}
		classified = append(classified, gin.H{
			"orderId":      order.ID,
			"leg":          order.Leg,
			"triggerPrice": order.TriggerPrice,
			"sourceFormat": order.SourceFormat,
			"createdAtMs":  order.CreatedAtMs,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol": strings.ToUpper(symbol),
		"orders": classified,
	})
}

func (s *Server) handleGetPrice(c *gin.Context) {
	if s.prices == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price feed disabled"})
		return
	}
	symbol := c.Param("symbol")
	mid, ok := s.prices.Mid(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no current mid for symbol"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol": strings.ToUpper(symbol),
		"mid":    mid,
	})
}

func (s *Server) handleGetAudit(c *gin.Context) {
	if s.recorder == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit trail disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	actions, err := s.recorder.RecentActions(c.Request.Context(), strings.ToUpper(c.Param("symbol")), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions})
}
