package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradecore/limit-order-engine-go/pkg/model"
)

func gtc(id string, side model.Side, price, qty int64) *model.Order {
	return model.NewOrder(id, "ABC", side, model.GTC, price, qty)
}

func fak(id string, side model.Side, price, qty int64) *model.Order {
	return model.NewOrder(id, "ABC", side, model.FAK, price, qty)
}

func TestRestingBuyShowsInLevels(t *testing.T) {
	ob := NewOrderBook("ABC")

	trades, err := ob.AddOrder(gtc("1", model.BUY, 100, 7))
	require.NoError(t, err)
	assert.Empty(t, trades)

	levels := ob.LevelInfos()
	require.Len(t, levels.Bids, 1)
	assert.Equal(t, int64(100), levels.Bids[0].Price)
	assert.Equal(t, int64(7), levels.Bids[0].Quantity)
	assert.Empty(t, levels.Asks)
	assert.True(t, ob.Contains("1"))
}

func TestFillAndKillNoCrossLeavesNoTrace(t *testing.T) {
	ob := NewOrderBook("ABC")

	// resting ask above the FAK buy price, no cross
	_, err := ob.AddOrder(gtc("1", model.SELL, 105, 10))
	require.NoError(t, err)

	trades, err := ob.AddOrder(fak("2", model.BUY, 100, 10))
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.False(t, ob.Contains("2"))

	levels := ob.LevelInfos()
	assert.Empty(t, levels.Bids)
	require.Len(t, levels.Asks, 1)
	assert.Equal(t, 1, ob.OrderCount())
}

func TestFullMatchAtEqualPrice(t *testing.T) {
	ob := NewOrderBook("ABC")

	_, err := ob.AddOrder(gtc("1", model.SELL, 100, 10))
	require.NoError(t, err)

	trades, err := ob.AddOrder(gtc("2", model.BUY, 100, 10))
	require.NoError(t, err)
	require.Len(t, trades, 1)

	tr := trades[0]
	assert.Equal(t, model.TradeLeg{OrderID: "2", Price: 100, Quantity: 10}, tr.Bid)
	assert.Equal(t, model.TradeLeg{OrderID: "1", Price: 100, Quantity: 10}, tr.Ask)

	assert.False(t, ob.Contains("1"))
	assert.False(t, ob.Contains("2"))
	levels := ob.LevelInfos()
	assert.Empty(t, levels.Bids)
	assert.Empty(t, levels.Asks)
}

func TestPartialFillLegsCarryOwnPrices(t *testing.T) {
	ob := NewOrderBook("ABC")

	_, err := ob.AddOrder(gtc("1", model.SELL, 100, 5))
	require.NoError(t, err)

	trades, err := ob.AddOrder(gtc("2", model.BUY, 101, 10))
	require.NoError(t, err)
	require.Len(t, trades, 1)

	// each leg reports its own resting price
	assert.Equal(t, model.TradeLeg{OrderID: "2", Price: 101, Quantity: 5}, trades[0].Bid)
	assert.Equal(t, model.TradeLeg{OrderID: "1", Price: 100, Quantity: 5}, trades[0].Ask)

	assert.False(t, ob.Contains("1"))
	buy, ok := ob.GetOrder("2")
	require.True(t, ok)
	assert.Equal(t, int64(5), buy.Remaining)

	levels := ob.LevelInfos()
	require.Len(t, levels.Bids, 1)
	assert.Equal(t, model.LevelInfo{Price: 101, Quantity: 5}, levels.Bids[0])
	assert.Empty(t, levels.Asks)
}

func TestFillAndKillFullExecution(t *testing.T) {
	ob := NewOrderBook("ABC")

	_, err := ob.AddOrder(gtc("1", model.BUY, 99, 10))
	require.NoError(t, err)

	trades, err := ob.AddOrder(fak("2", model.SELL, 99, 10))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, int64(10), trades[0].Bid.Quantity)
	assert.Equal(t, int64(99), trades[0].Bid.Price)
	assert.Equal(t, int64(99), trades[0].Ask.Price)

	assert.False(t, ob.Contains("1"))
	assert.False(t, ob.Contains("2"))
	assert.Zero(t, ob.OrderCount())
}

func TestFillAndKillRemainderIsDiscarded(t *testing.T) {
	ob := NewOrderBook("ABC")

	_, err := ob.AddOrder(gtc("1", model.SELL, 100, 4))
	require.NoError(t, err)

	trades, err := ob.AddOrder(fak("2", model.BUY, 100, 10))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, int64(4), trades[0].Bid.Quantity)

	// the unmatched 6 must not rest
	assert.False(t, ob.Contains("2"))
	levels := ob.LevelInfos()
	assert.Empty(t, levels.Bids)
	assert.Empty(t, levels.Asks)
}

func TestGTCRemainderStaysLiveAfterMatch(t *testing.T) {
	ob := NewOrderBook("ABC")

	_, err := ob.AddOrder(gtc("1", model.SELL, 100, 4))
	require.NoError(t, err)
	trades, err := ob.AddOrder(gtc("2", model.BUY, 100, 10))
	require.NoError(t, err)
	require.Len(t, trades, 1)

	// remainder rests and remains cancellable (still indexed)
	require.True(t, ob.Contains("2"))
	ob.CancelOrder("2")
	assert.False(t, ob.Contains("2"))
	assert.Empty(t, ob.LevelInfos().Bids)
}

func TestCancelRemovesLevel(t *testing.T) {
	ob := NewOrderBook("ABC")

	_, err := ob.AddOrder(gtc("1", model.SELL, 100, 10))
	require.NoError(t, err)
	ob.CancelOrder("1")

	assert.Empty(t, ob.LevelInfos().Asks)
	assert.False(t, ob.Contains("1"))

	// a later buy at the same price finds nothing to match
	trades, err := ob.AddOrder(gtc("2", model.BUY, 100, 10))
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.True(t, ob.Contains("2"))

	trades, err = ob.AddOrder(fak("3", model.SELL, 101, 5))
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.False(t, ob.Contains("3"))
}

func TestCancelUnknownIsNoop(t *testing.T) {
	ob := NewOrderBook("ABC")
	ob.CancelOrder("missing")
	assert.Zero(t, ob.OrderCount())
}

func TestDuplicateSubmitIsNoop(t *testing.T) {
	ob := NewOrderBook("ABC")

	_, err := ob.AddOrder(gtc("1", model.BUY, 100, 10))
	require.NoError(t, err)

	trades, err := ob.AddOrder(gtc("1", model.BUY, 200, 99))
	require.NoError(t, err)
	assert.Empty(t, trades)

	o, ok := ob.GetOrder("1")
	require.True(t, ok)
	assert.Equal(t, int64(100), o.Price)
	assert.Equal(t, int64(10), o.Remaining)
}

func TestModifyLosesQueuePriority(t *testing.T) {
	ob := NewOrderBook("ABC")

	_, err := ob.AddOrder(gtc("1", model.BUY, 100, 10))
	require.NoError(t, err)
	_, err = ob.AddOrder(gtc("2", model.BUY, 100, 10))
	require.NoError(t, err)

	// modify id=1 in place: same price, smaller size. It must rejoin
	// the level behind id=2.
	trades, err := ob.ModifyOrder("1", model.BUY, 5, 100)
	require.NoError(t, err)
	assert.Empty(t, trades)

	o, ok := ob.GetOrder("1")
	require.True(t, ok)
	assert.Equal(t, int64(5), o.Quantity)
	assert.Equal(t, int64(5), o.Remaining)

	// a crossing sell executes against id=2 first
	trades, err = ob.AddOrder(gtc("3", model.SELL, 100, 10))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "2", trades[0].Bid.OrderID)
	assert.True(t, ob.Contains("1"))
	assert.False(t, ob.Contains("2"))
}

func TestModifyUnknownIsNoop(t *testing.T) {
	ob := NewOrderBook("ABC")
	trades, err := ob.ModifyOrder("missing", model.BUY, 5, 100)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestModifyPreservesTypeAndCanTrade(t *testing.T) {
	ob := NewOrderBook("ABC")

	_, err := ob.AddOrder(gtc("1", model.BUY, 95, 10))
	require.NoError(t, err)
	_, err = ob.AddOrder(gtc("2", model.SELL, 100, 10))
	require.NoError(t, err)

	// reprice the bid across the spread: modification retriggers matching
	trades, err := ob.ModifyOrder("1", model.BUY, 10, 100)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "1", trades[0].Bid.OrderID)
	assert.Equal(t, "2", trades[0].Ask.OrderID)
	assert.Zero(t, ob.OrderCount())
}

func TestPriceTimePriorityAcrossLevels(t *testing.T) {
	ob := NewOrderBook("ABC")

	_, err := ob.AddOrder(gtc("a1", model.SELL, 102, 5))
	require.NoError(t, err)
	_, err = ob.AddOrder(gtc("a2", model.SELL, 101, 5))
	require.NoError(t, err)
	_, err = ob.AddOrder(gtc("a3", model.SELL, 101, 5))
	require.NoError(t, err)

	// sweep: best price first (101), FIFO within the level, then 102
	trades, err := ob.AddOrder(gtc("b", model.BUY, 102, 15))
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, "a2", trades[0].Ask.OrderID)
	assert.Equal(t, "a3", trades[1].Ask.OrderID)
	assert.Equal(t, "a1", trades[2].Ask.OrderID)
	assert.Equal(t, int64(101), trades[0].Ask.Price)
	assert.Equal(t, int64(102), trades[2].Ask.Price)
	assert.Zero(t, ob.OrderCount())
}

// The index and the side collections must agree at every step of a
// mixed workload: an id is indexed iff it rests in exactly one queue,
// and a level exists iff its queue is non-empty.
func TestBookStateConsistency(t *testing.T) {
	ob := NewOrderBook("ABC")

	ops := []func() ([]model.Trade, error){
		func() ([]model.Trade, error) { return ob.AddOrder(gtc("1", model.BUY, 100, 10)) },
		func() ([]model.Trade, error) { return ob.AddOrder(gtc("2", model.BUY, 101, 3)) },
		func() ([]model.Trade, error) { return ob.AddOrder(gtc("3", model.SELL, 103, 8)) },
		func() ([]model.Trade, error) { return ob.AddOrder(gtc("4", model.SELL, 101, 4)) },
		func() ([]model.Trade, error) { return ob.ModifyOrder("1", model.BUY, 6, 102) },
		func() ([]model.Trade, error) { ob.CancelOrder("3"); return nil, nil },
		func() ([]model.Trade, error) { return ob.AddOrder(fak("5", model.SELL, 100, 20)) },
	}

	for i, op := range ops {
		_, err := op()
		require.NoError(t, err, "op %d", i)
		assertConsistent(t, ob)
	}
}

func assertConsistent(t *testing.T, ob *OrderBook) {
	t.Helper()

	queued := 0
	for _, side := range []*bookSide{ob.bids, ob.asks} {
		require.Equal(t, len(side.levels), len(side.prices))
		for i := 1; i < len(side.prices); i++ {
			assert.True(t, side.better(side.prices[i-1], side.prices[i]),
				"side %s prices out of priority order", side.side)
		}
		for price, lvl := range side.levels {
			require.Positive(t, lvl.queue.Len(), "empty level %d not pruned", price)
			for e := lvl.queue.Front(); e != nil; e = e.Next() {
				o := e.Value.(*model.Order)
				queued++
				entry, ok := ob.orders[o.ID]
				require.True(t, ok, "queued order %s missing from index", o.ID)
				assert.Same(t, o, entry.order)
				assert.GreaterOrEqual(t, o.Remaining, int64(0))
				assert.LessOrEqual(t, o.Remaining, o.Quantity)
			}
		}
	}
	assert.Equal(t, len(ob.orders), queued, "index size must equal queued orders")
}
