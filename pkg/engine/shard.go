package engine

import (
	"fmt"
	"net/http"

	"github.com/tradecore/limit-order-engine-go/pkg/metrics"
	"github.com/tradecore/limit-order-engine-go/pkg/model"
)

// CmdType defines the kind of command sent to a shard.
type CmdType int

const (
	CmdSubmit CmdType = iota
	CmdCancel
	CmdModify
	CmdGetOrder
	CmdGetBook
)

// Cmd is a command routed to a shard.
type Cmd struct {
	Typ     CmdType
	Order   *model.Order // for submit
	OrderID string       // for cancel/modify/get
	Symbol  string       // routing key
	Side    model.Side   // for modify
	Qty     int64        // for modify
	Price   int64        // for modify
	Depth   int          // for orderbook snapshot
	Reply   chan interface{}
}

// Execution outcome of a submit or modify, host-level view of the
// engine's silent no-op semantics.
const (
	StatusResting   = "RESTING"
	StatusFilled    = "FILLED"
	StatusPartial   = "PARTIALLY_FILLED"
	StatusKilled    = "KILLED"
	StatusDuplicate = "DUPLICATE"
	StatusUnknown   = "UNKNOWN_ORDER"
)

// SubmitResult is returned by submit and modify commands.
type SubmitResult struct {
	Order      *model.Order  // order after processing
	Trades     []model.Trade // trades executed
	ExecStatus string
	StatusCode int    // HTTP-like status (201/200/202 semantics)
	Err        string // non-empty on error
}

// CancelResult for cancel command.
type CancelResult struct {
	OK  bool
	Err string
}

// GetResult for order lookup.
type GetResult struct {
	Order *model.Order
	Err   string
}

// BookSnapshot is returned by GetOrderBook.
type BookSnapshot struct {
	Symbol string
	Bids   []model.LevelInfo
	Asks   []model.LevelInfo
}

// shard is the actor owning a subset of symbols. All operations on a
// book go through its shard's loop, which gives every book the
// single-writer serialization the matching core requires.
type shard struct {
	in      chan *Cmd
	books   map[string]*OrderBook // symbol -> orderbook (owned)
	bufSize int
	quit    chan struct{}
}

// newShard creates and starts a shard loop.
func newShard(bufSize int) *shard {
	s := &shard{
		in:      make(chan *Cmd, bufSize),
		books:   make(map[string]*OrderBook),
		bufSize: bufSize,
		quit:    make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *shard) loop() {
	for {
		select {
		case cmd := <-s.in:
			switch cmd.Typ {
			case CmdSubmit:
				s.handleSubmit(cmd)
			case CmdCancel:
				s.handleCancel(cmd)
			case CmdModify:
				s.handleModify(cmd)
			case CmdGetOrder:
				s.handleGet(cmd)
			case CmdGetBook:
				s.handleGetBook(cmd)
			}
		case <-s.quit:
			return
		}
	}
}

func (s *shard) stop() {
	close(s.quit)
}

func (s *shard) getOrCreateBook(symbol string) *OrderBook {
	ob, ok := s.books[symbol]
	if !ok {
		ob = NewOrderBook(symbol)
		s.books[symbol] = ob
	}
	return ob
}

// book is the non-creating lookup for the read and cancel paths, so
// probing an unknown symbol never allocates an empty book.
func (s *shard) book(symbol string) (*OrderBook, bool) {
	ob, ok := s.books[symbol]
	return ob, ok
}

// detach copies an order for a reply. Replies must never carry a live
// book pointer: the caller reads the result outside this shard's loop,
// while the next command may be filling the same order.
func detach(o *model.Order) *model.Order {
	if o == nil {
		return nil
	}
	cp := *o
	return &cp
}

func (s *shard) handleSubmit(cmd *Cmd) {
	o := cmd.Order
	ob := s.getOrCreateBook(o.Symbol)

	// the engine treats a duplicate id as a silent no-op; surface it
	// distinctly to the API
	if ob.Contains(o.ID) {
		metrics.OrdersRejectedTotal.Inc()
		cmd.Reply <- SubmitResult{
			Order:      detach(o),
			ExecStatus: StatusDuplicate,
			StatusCode: http.StatusConflict,
			Err:        "duplicate order id",
		}
		return
	}

	trades, err := ob.AddOrder(o)
	if err != nil {
		// matching invariant breach, book can no longer be trusted
		cmd.Reply <- SubmitResult{
			Order:      detach(o),
			Trades:     trades,
			ExecStatus: StatusKilled,
			StatusCode: http.StatusInternalServerError,
			Err:        err.Error(),
		}
		return
	}

	metrics.OrdersSubmittedTotal.Inc()
	recordTrades(trades)

	res := SubmitResult{Order: detach(o), Trades: trades}
	res.ExecStatus, res.StatusCode = execOutcome(ob, o)
	if res.ExecStatus == StatusKilled {
		metrics.OrdersKilledTotal.Inc()
	}
	cmd.Reply <- res
}

func (s *shard) handleCancel(cmd *Cmd) {
	ob, ok := s.book(cmd.Symbol)
	if !ok || !ob.Contains(cmd.OrderID) {
		// unknown id: the book treats this as a no-op, not an error
		cmd.Reply <- CancelResult{OK: false, Err: "order not found"}
		return
	}
	ob.CancelOrder(cmd.OrderID)
	metrics.OrdersCancelledTotal.Inc()
	cmd.Reply <- CancelResult{OK: true}
}

func (s *shard) handleModify(cmd *Cmd) {
	ob, known := s.book(cmd.Symbol)
	if !known || !ob.Contains(cmd.OrderID) {
		cmd.Reply <- SubmitResult{
			ExecStatus: StatusUnknown,
			StatusCode: http.StatusNotFound,
			Err:        "order not found",
		}
		return
	}

	trades, err := ob.ModifyOrder(cmd.OrderID, cmd.Side, cmd.Qty, cmd.Price)
	if err != nil {
		cmd.Reply <- SubmitResult{
			Trades:     trades,
			ExecStatus: StatusKilled,
			StatusCode: http.StatusInternalServerError,
			Err:        err.Error(),
		}
		return
	}

	metrics.OrdersModifiedTotal.Inc()
	recordTrades(trades)

	res := SubmitResult{Trades: trades}
	if o, ok := ob.GetOrder(cmd.OrderID); ok {
		res.Order = detach(o)
		res.ExecStatus, res.StatusCode = execOutcome(ob, o)
	} else {
		// replacement executed fully or was discarded
		res.ExecStatus = StatusFilled
		res.StatusCode = http.StatusOK
	}
	cmd.Reply <- res
}

func (s *shard) handleGet(cmd *Cmd) {
	ob, known := s.book(cmd.Symbol)
	if !known {
		cmd.Reply <- GetResult{Err: "order not found"}
		return
	}
	o, ok := ob.GetOrder(cmd.OrderID)
	if !ok {
		cmd.Reply <- GetResult{Err: "order not found"}
		return
	}
	cmd.Reply <- GetResult{Order: detach(o)}
}

func (s *shard) handleGetBook(cmd *Cmd) {
	ob, known := s.book(cmd.Symbol)
	if !known {
		cmd.Reply <- BookSnapshot{
			Symbol: cmd.Symbol,
			Bids:   []model.LevelInfo{},
			Asks:   []model.LevelInfo{},
		}
		return
	}
	depth := cmd.Depth
	if depth <= 0 {
		depth = 10
	}
	levels := ob.LevelInfos()
	cmd.Reply <- BookSnapshot{
		Symbol: cmd.Symbol,
		Bids:   clip(levels.Bids, depth),
		Asks:   clip(levels.Asks, depth),
	}
}

// execOutcome maps the post-submit order state to an execution status
// and HTTP-like code: 201 rested, 202 partial, 200 filled or killed.
func execOutcome(ob *OrderBook, o *model.Order) (string, int) {
	switch {
	case o.IsFilled():
		return StatusFilled, http.StatusOK
	case ob.Contains(o.ID) && o.Filled() > 0:
		return StatusPartial, http.StatusAccepted
	case ob.Contains(o.ID):
		return StatusResting, http.StatusCreated
	default:
		return StatusKilled, http.StatusOK
	}
}

func recordTrades(trades []model.Trade) {
	if len(trades) == 0 {
		return
	}
	metrics.TradesExecutedTotal.Add(float64(len(trades)))
	qty := int64(0)
	for _, tr := range trades {
		qty += tr.Bid.Quantity
	}
	metrics.TradeQuantityTotal.Add(float64(qty))
}

func clip(levels []model.LevelInfo, depth int) []model.LevelInfo {
	if len(levels) > depth {
		return levels[:depth]
	}
	return levels
}

// small helper for debugging
func (s *shard) String() string {
	return fmt.Sprintf("shard{books=%d}", len(s.books))
}
