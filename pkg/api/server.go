package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/tradecore/limit-order-engine-go/pkg/engine"
	"github.com/tradecore/limit-order-engine-go/pkg/metrics"
	"github.com/tradecore/limit-order-engine-go/pkg/store"
)

// Server is the HTTP face of the engine: it owns the id -> symbol
// routing map, records executed trades, and translates engine results
// into REST responses.
type Server struct {
	router  *engine.Router
	trades  *store.TradeStore
	log     zerolog.Logger
	mux     *mux.Router
	started time.Time

	idToSymbol struct {
		mu sync.RWMutex
		m  map[string]string
	}
}

// NewServer wires the API to the engine router and trade store.
func NewServer(r *engine.Router, trades *store.TradeStore, logger zerolog.Logger) *Server {
	s := &Server{
		router:  r,
		trades:  trades,
		log:     logger,
		started: time.Now(),
	}
	s.idToSymbol.m = make(map[string]string)

	m := mux.NewRouter()
	m.Use(RequestLogger(logger))

	m.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	m.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	v1 := m.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/orders", s.handleCreateOrder).Methods(http.MethodPost)
	v1.HandleFunc("/orders/{id}", s.handleGetOrder).Methods(http.MethodGet)
	v1.HandleFunc("/orders/{id}", s.handleCancelOrder).Methods(http.MethodDelete)
	v1.HandleFunc("/orders/{id}", s.handleModifyOrder).Methods(http.MethodPut)
	v1.HandleFunc("/orderbook/{symbol}", s.handleGetOrderBook).Methods(http.MethodGet)
	v1.HandleFunc("/trades/{symbol}", s.handleGetTrades).Methods(http.MethodGet)

	s.mux = m
	return s
}

// Handler returns the root http handler.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"uptime_sec": int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) rememberSymbol(id, symbol string) {
	s.idToSymbol.mu.Lock()
	s.idToSymbol.m[id] = symbol
	s.idToSymbol.mu.Unlock()
}

func (s *Server) lookupSymbol(id string) (string, bool) {
	s.idToSymbol.mu.RLock()
	sym, ok := s.idToSymbol.m[id]
	s.idToSymbol.mu.RUnlock()
	return sym, ok
}

func (s *Server) forgetSymbol(id string) {
	s.idToSymbol.mu.Lock()
	delete(s.idToSymbol.m, id)
	s.idToSymbol.mu.Unlock()
}

// ----------------- helpers -----------------

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
