package pricefeed

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFeedHandleMessage(t *testing.T) {
	feed := NewFeed(Config{URL: "wss://example"}, zerolog.Nop())

	feed.handleMessage([]byte(`{"channel":"allMids","data":{"mids":{"ETH":"3505.25","BTC":"87500","BAD":"x"}}}`))

	if mid, ok := feed.Mid("eth"); !ok || mid != 3505.25 {
		t.Errorf("Mid(eth) = (%v, %v), want (3505.25, true)", mid, ok)
	}
	if mid, ok := feed.Mid("BTC"); !ok || mid != 87500 {
		t.Errorf("Mid(BTC) = (%v, %v), want (87500, true)", mid, ok)
	}
	if _, ok := feed.Mid("BAD"); ok {
		t.Error("unparseable mid must not be stored")
	}
	if _, ok := feed.Mid("SOL"); ok {
		t.Error("unknown symbol must miss")
	}
}

func TestFeedIgnoresOtherChannels(t *testing.T) {
	feed := NewFeed(Config{URL: "wss://example"}, zerolog.Nop())
	feed.handleMessage([]byte(`{"channel":"trades","data":{}}`))
	feed.handleMessage([]byte(`not json`))

	if _, ok := feed.Mid("ETH"); ok {
		t.Error("no mids should be stored")
	}
}

func TestFeedStaleMid(t *testing.T) {
	feed := NewFeed(Config{URL: "wss://example", StaleAfter: 10 * time.Millisecond}, zerolog.Nop())
	feed.handleMessage([]byte(`{"channel":"allMids","data":{"mids":{"ETH":"3500"}}}`))

	time.Sleep(20 * time.Millisecond)
	if _, ok := feed.Mid("ETH"); ok {
		t.Error("stale mid must not be served")
	}
}
