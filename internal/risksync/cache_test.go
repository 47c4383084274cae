package risksync

import (
	"sync"
	"testing"
)

func TestCacheKeyNormalization(t *testing.T) {
	cache := NewLevelsCache()
	tp := 3500.0
	cache.Set(CacheEntry{
		WalletAddress:   "0xAbCdEf",
		Symbol:          "eth",
		TakeProfitPrice: &tp,
		UpdatedAtMs:     100,
	})

	entry, ok := cache.Get("0XABCDEF", "ETH")
	if !ok {
		t.Fatal("expected hit on normalized key")
	}
	if entry.WalletAddress != "0xabcdef" || entry.Symbol != "ETH" {
		t.Errorf("stored key fields = (%s, %s), want lowercase wallet and uppercase symbol",
			entry.WalletAddress, entry.Symbol)
	}
	if entry.TakeProfitPrice == nil || *entry.TakeProfitPrice != 3500 {
		t.Errorf("TP = %v, want 3500", entry.TakeProfitPrice)
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}
}

func TestCacheTimestampMonotonic(t *testing.T) {
	cache := NewLevelsCache()
	cache.Set(CacheEntry{WalletAddress: "0xabc", Symbol: "BTC", UpdatedAtMs: 200})
	cache.Set(CacheEntry{WalletAddress: "0xabc", Symbol: "BTC", UpdatedAtMs: 150})

	entry, _ := cache.Get("0xabc", "BTC")
	if entry.UpdatedAtMs != 200 {
		t.Errorf("UpdatedAtMs = %d, want 200 to be retained", entry.UpdatedAtMs)
	}
}

func TestCacheMissOnUnknownKey(t *testing.T) {
	cache := NewLevelsCache()
	if _, ok := cache.Get("0xabc", "BTC"); ok {
		t.Error("expected miss on empty cache")
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	cache := NewLevelsCache()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			price := float64(3000 + n)
			cache.Set(CacheEntry{
				WalletAddress:   "0xabc",
				Symbol:          "ETH",
				TakeProfitPrice: &price,
				UpdatedAtMs:     int64(n),
			})
			cache.Get("0xabc", "ETH")
		}(i)
	}
	wg.Wait()

	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	locks := newKeyedMutex()
	var counter, max int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("0xabc|ETH")
			defer unlock()

			mu.Lock()
			counter++
			if counter > max {
				max = counter
			}
			mu.Unlock()

			mu.Lock()
			counter--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if max > 1 {
		t.Errorf("observed %d concurrent holders of the same key", max)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	locks := newKeyedMutex()

	unlockA := locks.Lock("0xabc|ETH")
	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("0xabc|BTC")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}
