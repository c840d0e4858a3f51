package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tradecore/limit-order-engine-go/pkg/model"
)

// TradeRecord is one executed trade as the host publishes it: the two
// matched legs plus an assigned trade id and execution time.
type TradeRecord struct {
	TradeID   string         `json:"trade_id"`
	Symbol    string         `json:"symbol"`
	Bid       model.TradeLeg `json:"bid"`
	Ask       model.TradeLeg `json:"ask"`
	Timestamp int64          `json:"timestamp"` // unix ms
}

// TradeStore keeps a bounded in-memory history of executed trades per
// symbol. Thread-safe; history survives only as long as the process
// (durability is the host operator's problem, not the engine's).
type TradeStore struct {
	mu       sync.RWMutex
	capacity int
	bySymbol map[string][]TradeRecord
}

// NewTradeStore creates a store keeping up to capacity trades per
// symbol (oldest dropped first).
func NewTradeStore(capacity int) *TradeStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &TradeStore{
		capacity: capacity,
		bySymbol: make(map[string][]TradeRecord),
	}
}

// Record assigns trade ids and appends the trades to the symbol's
// history, returning the stored records.
func (s *TradeStore) Record(symbol string, trades []model.Trade) []TradeRecord {
	if len(trades) == 0 {
		return nil
	}
	now := time.Now().UnixMilli()
	records := make([]TradeRecord, len(trades))
	for i, tr := range trades {
		records[i] = TradeRecord{
			TradeID:   uuid.NewString(),
			Symbol:    symbol,
			Bid:       tr.Bid,
			Ask:       tr.Ask,
			Timestamp: now,
		}
	}

	s.mu.Lock()
	hist := append(s.bySymbol[symbol], records...)
	if len(hist) > s.capacity {
		hist = hist[len(hist)-s.capacity:]
	}
	s.bySymbol[symbol] = hist
	s.mu.Unlock()

	return records
}

// Recent returns up to limit most recent trades for a symbol, newest
// last (execution order).
func (s *TradeStore) Recent(symbol string, limit int) []TradeRecord {
	s.mu.RLock()
	hist := s.bySymbol[symbol]
	if limit <= 0 || limit > len(hist) {
		limit = len(hist)
	}
	out := make([]TradeRecord, limit)
	copy(out, hist[len(hist)-limit:])
	s.mu.RUnlock()
	return out
}

// Len returns the number of stored trades for a symbol.
func (s *TradeStore) Len(symbol string) int {
	s.mu.RLock()
	n := len(s.bySymbol[symbol])
	s.mu.RUnlock()
	return n
}
