package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/tradecore/limit-order-engine-go/pkg/engine"
	"github.com/tradecore/limit-order-engine-go/pkg/metrics"
	"github.com/tradecore/limit-order-engine-go/pkg/model"
	"github.com/tradecore/limit-order-engine-go/pkg/store"
)

// -------------------------------
// POST /api/v1/orders
// -------------------------------
func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req model.Order
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := req.Validate(); err != nil {
		metrics.OrdersRejectedTotal.Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// unique ids are the host's job: assign one when the client didn't
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Remaining = req.Quantity
	req.Timestamp = time.Now().UnixMilli()

	start := time.Now()
	res := s.router.SubmitOrder(&req)
	metrics.SubmitLatencyMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)

	if res.Err != "" && res.ExecStatus != engine.StatusDuplicate {
		s.log.Error().Str("order_id", req.ID).Str("err", res.Err).Msg("submit failed")
		writeError(w, res.StatusCode, res.Err)
		return
	}
	if res.ExecStatus == engine.StatusDuplicate {
		writeError(w, res.StatusCode, res.Err)
		return
	}

	records := s.trades.Record(req.Symbol, res.Trades)

	// only resting orders need the id -> symbol route for GET/DELETE/PUT
	if res.ExecStatus == engine.StatusResting || res.ExecStatus == engine.StatusPartial {
		s.rememberSymbol(req.ID, req.Symbol)
	}

	writeJSON(w, res.StatusCode, orderResponse(res.Order, res.ExecStatus, records))
}

// -------------------------------
// GET /api/v1/orders/{id}
// -------------------------------
func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	sym, ok := s.lookupSymbol(id)
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	res := s.router.GetOrder(sym, id)
	if res.Err != "" || res.Order == nil {
		// the order filled or was killed since we last saw it; drop the
		// stale id -> symbol route
		s.forgetSymbol(id)
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	status := engine.StatusResting
	if res.Order.Filled() > 0 {
		status = engine.StatusPartial
	}
	writeJSON(w, http.StatusOK, orderResponse(res.Order, status, nil))
}

// -------------------------------
// DELETE /api/v1/orders/{id}
// -------------------------------
func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	sym, ok := s.lookupSymbol(id)
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	res := s.router.CancelOrder(sym, id)
	if !res.OK {
		s.forgetSymbol(id)
		writeError(w, http.StatusNotFound, res.Err)
		return
	}

	s.forgetSymbol(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// modifyRequest carries the replacement parameters; the order keeps
// its id and type but loses queue position.
type modifyRequest struct {
	Side     model.Side `json:"side"`
	Quantity int64      `json:"quantity"`
	Price    int64      `json:"price"`
}

// -------------------------------
// PUT /api/v1/orders/{id}
// -------------------------------
func (s *Server) handleModifyOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	sym, ok := s.lookupSymbol(id)
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	var req modifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Side != model.BUY && req.Side != model.SELL {
		writeError(w, http.StatusBadRequest, "invalid side: must be BUY or SELL")
		return
	}
	if req.Quantity <= 0 || req.Price <= 0 {
		writeError(w, http.StatusBadRequest, "quantity and price must be > 0")
		return
	}

	res := s.router.ModifyOrder(sym, id, req.Side, req.Quantity, req.Price)
	if res.Err != "" {
		if res.ExecStatus == engine.StatusUnknown {
			s.forgetSymbol(id)
		}
		writeError(w, res.StatusCode, res.Err)
		return
	}

	records := s.trades.Record(sym, res.Trades)

	// the replacement may have executed fully or been discarded
	if res.ExecStatus == engine.StatusFilled || res.ExecStatus == engine.StatusKilled {
		s.forgetSymbol(id)
	}

	writeJSON(w, res.StatusCode, orderResponse(res.Order, res.ExecStatus, records))
}

// -------------------------------
// GET /api/v1/orderbook/{symbol}?depth=N
// -------------------------------
func (s *Server) handleGetOrderBook(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	depth := 10
	if ds := r.URL.Query().Get("depth"); ds != "" {
		if d, err := strconv.Atoi(ds); err == nil && d > 0 {
			depth = d
		}
	}

	snap := s.router.GetOrderBook(symbol, depth)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"bids":   snap.Bids,
		"asks":   snap.Asks,
	})
}

// -------------------------------
// GET /api/v1/trades/{symbol}?limit=N
// -------------------------------
func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	limit := 100
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if l, err := strconv.Atoi(ls); err == nil && l > 0 {
			limit = l
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"trades": s.trades.Recent(symbol, limit),
	})
}

func orderResponse(o *model.Order, execStatus string, trades []store.TradeRecord) map[string]interface{} {
	if trades == nil {
		trades = []store.TradeRecord{}
	}
	resp := map[string]interface{}{
		"status":          execStatus,
		"trades_executed": trades,
	}
	if o != nil {
		resp["order_id"] = o.ID
		resp["symbol"] = o.Symbol
		resp["side"] = o.Side
		resp["type"] = o.Type
		resp["price"] = o.Price
		resp["quantity"] = o.Quantity
		resp["filled_quantity"] = o.Filled()
		resp["remaining"] = o.Remaining
	}
	return resp
}
