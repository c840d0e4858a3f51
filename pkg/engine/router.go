package engine

import (
	"hash/fnv"
	"runtime"

	"github.com/tradecore/limit-order-engine-go/pkg/model"
)

// Router routes commands to N shards. Each instrument maps to exactly
// one shard, so all operations on one book are serialized by that
// shard's loop.
type Router struct {
	shards []*shard
	n      int
	buf    int
}

// NewRouter creates a router with numShards worker shards and channel
// buffer size buf.
func NewRouter(numShards int, buf int) *Router {
	if numShards <= 0 {
		numShards = runtime.NumCPU()
	}
	r := &Router{
		shards: make([]*shard, numShards),
		n:      numShards,
		buf:    buf,
	}
	for i := 0; i < numShards; i++ {
		r.shards[i] = newShard(buf)
	}
	return r
}

func (r *Router) Stop() {
	for _, s := range r.shards {
		s.stop()
	}
}

// routeIdx returns the shard index for a symbol.
func (r *Router) routeIdx(symbol string) int {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return int(h.Sum32()) % r.n
}

// SubmitOrder routes an order to the owning shard and waits for the
// result.
func (r *Router) SubmitOrder(o *model.Order) SubmitResult {
	idx := r.routeIdx(o.Symbol)
	reply := make(chan interface{})
	cmd := &Cmd{
		Typ:    CmdSubmit,
		Order:  o,
		Symbol: o.Symbol,
		Reply:  reply,
	}
	r.shards[idx].in <- cmd
	ri := <-reply
	return ri.(SubmitResult)
}

// CancelOrder routes a cancel request to the shard owning the symbol.
// The caller supplies the symbol for routing; the API keeps the
// id -> symbol mapping.
func (r *Router) CancelOrder(symbol, orderID string) CancelResult {
	idx := r.routeIdx(symbol)
	reply := make(chan interface{})
	cmd := &Cmd{Typ: CmdCancel, OrderID: orderID, Symbol: symbol, Reply: reply}
	r.shards[idx].in <- cmd
	ri := <-reply
	return ri.(CancelResult)
}

// ModifyOrder replaces an order's side, quantity and price in a single
// serialized step on the owning shard. The replacement keeps the same
// id and original type but loses its queue position.
func (r *Router) ModifyOrder(symbol, orderID string, side model.Side, qty, price int64) SubmitResult {
	idx := r.routeIdx(symbol)
	reply := make(chan interface{})
	cmd := &Cmd{
		Typ:     CmdModify,
		OrderID: orderID,
		Symbol:  symbol,
		Side:    side,
		Qty:     qty,
		Price:   price,
		Reply:   reply,
	}
	r.shards[idx].in <- cmd
	ri := <-reply
	return ri.(SubmitResult)
}

// GetOrder retrieves a live order by id from the shard owning the
// symbol.
func (r *Router) GetOrder(symbol, orderID string) GetResult {
	idx := r.routeIdx(symbol)
	reply := make(chan interface{})
	cmd := &Cmd{Typ: CmdGetOrder, OrderID: orderID, Symbol: symbol, Reply: reply}
	r.shards[idx].in <- cmd
	ri := <-reply
	return ri.(GetResult)
}

// GetOrderBook returns an aggregated level snapshot for a symbol.
func (r *Router) GetOrderBook(symbol string, depth int) BookSnapshot {
	idx := r.routeIdx(symbol)
	reply := make(chan interface{})
	cmd := &Cmd{Typ: CmdGetBook, Symbol: symbol, Depth: depth, Reply: reply}
	r.shards[idx].in <- cmd
	ri := <-reply
	return ri.(BookSnapshot)
}
