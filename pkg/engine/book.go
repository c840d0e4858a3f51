package engine

import (
	"container/list"
	"sort"

	"github.com/tradecore/limit-order-engine-go/pkg/model"
)

// priceLevel holds the FIFO queue of resting orders at one price.
// Orders are stored once, in the queue; everything else refers to them
// through stable *list.Element handles.
type priceLevel struct {
	price int64
	queue *list.List // of *model.Order
}

// bookSide is one side's price-ordered collection of levels. prices is
// kept sorted best-first (highest first for bids, lowest first for
// asks) and always mirrors the levels map: a price is present iff its
// queue is non-empty.
type bookSide struct {
	side   model.Side
	levels map[int64]*priceLevel
	prices []int64
}

func newBookSide(side model.Side) *bookSide {
	return &bookSide{
		side:   side,
		levels: make(map[int64]*priceLevel),
	}
}

// better reports whether price a has priority over price b on this side.
func (s *bookSide) better(a, b int64) bool {
	if s.side == model.BUY {
		return a > b
	}
	return a < b
}

// best returns the top-of-book level, or nil if the side is empty.
func (s *bookSide) best() *priceLevel {
	if len(s.prices) == 0 {
		return nil
	}
	return s.levels[s.prices[0]]
}

// getOrCreate returns the level at price, creating it in sorted
// position if absent.
func (s *bookSide) getOrCreate(price int64) *priceLevel {
	if lvl, ok := s.levels[price]; ok {
		return lvl
	}
	lvl := &priceLevel{price: price, queue: list.New()}
	s.levels[price] = lvl

	i := sort.Search(len(s.prices), func(i int) bool {
		return !s.better(s.prices[i], price)
	})
	s.prices = append(s.prices, 0)
	copy(s.prices[i+1:], s.prices[i:])
	s.prices[i] = price
	return lvl
}

// removeLevel prunes an emptied price level.
func (s *bookSide) removeLevel(price int64) {
	delete(s.levels, price)
	i := sort.Search(len(s.prices), func(i int) bool {
		return !s.better(s.prices[i], price)
	})
	if i < len(s.prices) && s.prices[i] == price {
		s.prices = append(s.prices[:i], s.prices[i+1:]...)
	}
}

// levelInfos aggregates remaining quantity per price, best first.
func (s *bookSide) levelInfos() []model.LevelInfo {
	out := make([]model.LevelInfo, 0, len(s.prices))
	for _, p := range s.prices {
		lvl := s.levels[p]
		total := int64(0)
		for e := lvl.queue.Front(); e != nil; e = e.Next() {
			total += e.Value.(*model.Order).Remaining
		}
		out = append(out, model.LevelInfo{Price: p, Quantity: total})
	}
	return out
}

// orderEntry is the index record for a live order: the order itself
// and its stable position in its level's queue, for O(1) cancellation.
type orderEntry struct {
	order *model.Order
	elem  *list.Element
}

// OrderBook is a single-instrument limit order matching core with
// price-time priority. It is a single-writer state machine: callers
// must serialize all operations on one book (the shard actor does
// this for the server).
type OrderBook struct {
	Symbol string

	bids   *bookSide
	asks   *bookSide
	orders map[string]*orderEntry // order id -> live entry
}

// NewOrderBook creates an empty book for a symbol.
func NewOrderBook(symbol string) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		bids:   newBookSide(model.BUY),
		asks:   newBookSide(model.SELL),
		orders: make(map[string]*orderEntry),
	}
}

func (ob *OrderBook) sideFor(side model.Side) *bookSide {
	if side == model.BUY {
		return ob.bids
	}
	return ob.asks
}

// canMatch reports whether an order at price on side would cross
// resting liquidity on the opposite side. Equal prices count as a
// cross.
func (ob *OrderBook) canMatch(side model.Side, price int64) bool {
	if side == model.BUY {
		best := ob.asks.best()
		return best != nil && best.price <= price
	}
	best := ob.bids.best()
	return best != nil && price <= best.price
}

// AddOrder submits an order and returns the trades it produced.
// Duplicate order ids and fill-and-kill orders with no crossing
// liquidity are silent no-ops. The error return is non-nil only on a
// matching invariant breach (overfill), after which the book must be
// considered corrupt.
func (ob *OrderBook) AddOrder(o *model.Order) ([]model.Trade, error) {
	if _, ok := ob.orders[o.ID]; ok {
		return nil, nil
	}
	if o.Type == model.FAK && !ob.canMatch(o.Side, o.Price) {
		return nil, nil
	}

	lvl := ob.sideFor(o.Side).getOrCreate(o.Price)
	elem := lvl.queue.PushBack(o)
	ob.orders[o.ID] = &orderEntry{order: o, elem: elem}

	return ob.matchOrders()
}

// CancelOrder removes a resting order. Unknown ids are a no-op.
func (ob *OrderBook) CancelOrder(id string) {
	entry, ok := ob.orders[id]
	if !ok {
		return
	}
	ob.unlink(entry)
}

// ModifyOrder cancels the existing order and resubmits it with the
// same id and original type but new side, quantity and price. Queue
// position is not preserved: the replacement joins the back of its new
// level. Unknown ids are a no-op.
func (ob *OrderBook) ModifyOrder(id string, side model.Side, quantity, price int64) ([]model.Trade, error) {
	entry, ok := ob.orders[id]
	if !ok {
		return nil, nil
	}
	typ := entry.order.Type
	symbol := entry.order.Symbol
	ob.unlink(entry)

	return ob.AddOrder(model.NewOrder(id, symbol, side, typ, price, quantity))
}

// GetOrder returns the live order with the given id, if any.
func (ob *OrderBook) GetOrder(id string) (*model.Order, bool) {
	entry, ok := ob.orders[id]
	if !ok {
		return nil, false
	}
	return entry.order, true
}

// Contains reports whether an order id is live in the book.
func (ob *OrderBook) Contains(id string) bool {
	_, ok := ob.orders[id]
	return ok
}

// OrderCount returns the number of live resting orders.
func (ob *OrderBook) OrderCount() int {
	return len(ob.orders)
}

// LevelInfos returns the per-price aggregate of resting quantity on
// both sides, in priority order. Pure read.
func (ob *OrderBook) LevelInfos() model.BookLevels {
	return model.BookLevels{
		Bids: ob.bids.levelInfos(),
		Asks: ob.asks.levelInfos(),
	}
}

// unlink removes an order from its level queue and the index, pruning
// the level if it empties.
func (ob *OrderBook) unlink(entry *orderEntry) {
	o := entry.order
	side := ob.sideFor(o.Side)
	if lvl, ok := side.levels[o.Price]; ok {
		lvl.queue.Remove(entry.elem)
		if lvl.queue.Len() == 0 {
			side.removeLevel(o.Price)
		}
	}
	delete(ob.orders, o.ID)
}

// matchOrders consumes crossing liquidity from both sides until no
// cross remains. Each fill pairs the oldest order at the best bid with
// the oldest at the best ask for min(remaining, remaining); each trade
// leg reports its own order's resting price. After a best-level pair
// is exhausted, any fill-and-kill remainder at the top of either side
// is discarded; good-till-cancel remainders stay resting.
func (ob *OrderBook) matchOrders() ([]model.Trade, error) {
	var trades []model.Trade

	for {
		bestBid := ob.bids.best()
		bestAsk := ob.asks.best()
		if bestBid == nil || bestAsk == nil {
			break
		}
		if bestBid.price < bestAsk.price {
			break
		}

		for bestBid.queue.Len() > 0 && bestAsk.queue.Len() > 0 {
			bid := bestBid.queue.Front().Value.(*model.Order)
			ask := bestAsk.queue.Front().Value.(*model.Order)

			qty := min(bid.Remaining, ask.Remaining)
			if err := bid.Fill(qty); err != nil {
				return trades, err
			}
			if err := ask.Fill(qty); err != nil {
				return trades, err
			}

			if bid.IsFilled() {
				bestBid.queue.Remove(bestBid.queue.Front())
				delete(ob.orders, bid.ID)
			}
			if ask.IsFilled() {
				bestAsk.queue.Remove(bestAsk.queue.Front())
				delete(ob.orders, ask.ID)
			}

			trades = append(trades, model.Trade{
				Bid: model.TradeLeg{OrderID: bid.ID, Price: bid.Price, Quantity: qty},
				Ask: model.TradeLeg{OrderID: ask.ID, Price: ask.Price, Quantity: qty},
			})
		}

		if bestBid.queue.Len() == 0 {
			ob.bids.removeLevel(bestBid.price)
		}
		if bestAsk.queue.Len() == 0 {
			ob.asks.removeLevel(bestAsk.price)
		}

		ob.dropHeadFAK(ob.bids)
		ob.dropHeadFAK(ob.asks)
	}

	return trades, nil
}

// dropHeadFAK discards a fill-and-kill order left at the top of a side
// after matching: its unmatched remainder never rests.
func (ob *OrderBook) dropHeadFAK(side *bookSide) {
	lvl := side.best()
	if lvl == nil {
		return
	}
	head := lvl.queue.Front().Value.(*model.Order)
	if head.Type != model.FAK {
		return
	}
	if entry, ok := ob.orders[head.ID]; ok {
		ob.unlink(entry)
	}
}
