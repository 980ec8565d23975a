package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/marketsim/pkg/app/core/orderbook"
	"github.com/uhyunpark/marketsim/pkg/sim"
)

const defaultTradeLimit = 50

// Server exposes a running simulation over REST and WebSocket. It only
// reads; nothing here can place orders or change balances.
type Server struct {
	sim    *sim.Simulator
	router *mux.Router
	hub    *Hub // WebSocket hub
	log    *zap.SugaredLogger

	mu     sync.Mutex // guards http and closed
	http   *http.Server
	closed bool
}

// NewServer creates a new API server
func NewServer(s *sim.Simulator, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	srv := &Server{
		sim:    s,
		router: mux.NewRouter(),
		hub:    NewHub(logger),
		log:    logger,
	}
	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Market endpoints
	api.HandleFunc("/market", s.handleGetMarket).Methods("GET")
	api.HandleFunc("/market/orderbook", s.handleGetOrderbook).Methods("GET")
	api.HandleFunc("/market/trades", s.handleGetTrades).Methods("GET")
	api.HandleFunc("/rounds/{round:[0-9]+}/trades", s.handleGetRoundTrades).Methods("GET")

	// Participant endpoints
	api.HandleFunc("/participants", s.handleGetParticipants).Methods("GET")
	api.HandleFunc("/participants/{id}", s.handleGetParticipant).Methods("GET")
	api.HandleFunc("/participants/{id}/history", s.handleGetParticipantHistory).Methods("GET")

	if m := s.sim.Metrics(); m != nil {
		s.router.Handle("/metrics", m.Handler()).Methods("GET")
	}

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped with CORS
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// Hub exposes the WebSocket hub
func (s *Server) Hub() *Hub { return s.hub }

// Start serves until Shutdown is called. It returns nil after a clean
// shutdown, including when Shutdown ran first.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.http = srv
	s.mu.Unlock()

	go s.hub.Run()
	s.log.Infow("api_started", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the hub and the listener. A later Start returns at once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.http
	s.mu.Unlock()

	s.hub.Stop()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	m := s.sim.Market()
	respondJSON(w, MarketInfo{Summary: m.Summary(), TotalTrades: len(m.Trades())})
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	m := s.sim.Market()

	respondJSON(w, OrderbookSnapshot{
		Commodity: m.Commodity(),
		Round:     m.Round(),
		Bids:      toLevels(m.BidLevels()),
		Asks:      toLevels(m.AskLevels()),
		Timestamp: time.Now().UnixMilli(),
	})
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	limit := defaultTradeLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "invalid limit", "limit must be a positive integer")
			return
		}
		limit = n
	}
	trades := s.sim.Market().RecentTrades(limit)
	if trades == nil {
		trades = []orderbook.Trade{}
	}
	respondJSON(w, trades)
}

func (s *Server) handleGetRoundTrades(w http.ResponseWriter, r *http.Request) {
	j := s.sim.Journal()
	if j == nil {
		respondError(w, http.StatusServiceUnavailable, "journal disabled", "")
		return
	}
	round, err := strconv.ParseInt(mux.Vars(r)["round"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid round", err.Error())
		return
	}

	trades, err := j.TradesForRound(round)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "journal read failed", err.Error())
		return
	}
	if trades == nil {
		trades = []orderbook.Trade{}
	}
	respondJSON(w, RoundTradesResponse{Round: round, RunID: j.RunID(), Trades: trades})
}

func (s *Server) handleGetParticipants(w http.ResponseWriter, r *http.Request) {
	mark := s.sim.Market().Summary().AvgRecentPrice
	list := s.sim.Participants().List()

	response := make([]ParticipantInfo, len(list))
	for i, p := range list {
		response[i] = ParticipantInfo{
			StateSummary:   p.StateSummary(),
			TotalTrades:    len(p.History()),
			EstimatedValue: p.EstimatedValue(mark),
		}
	}
	respondJSON(w, response)
}

func (s *Server) handleGetParticipant(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, ok := s.sim.Participants().Participant(id)
	if !ok {
		respondError(w, http.StatusNotFound, "participant not found", id)
		return
	}
	respondJSON(w, ParticipantInfo{
		StateSummary:   p.StateSummary(),
		TotalTrades:    len(p.History()),
		EstimatedValue: p.EstimatedValue(s.sim.Market().Summary().AvgRecentPrice),
	})
}

func (s *Server) handleGetParticipantHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.sim.Participants().Participant(id); !ok {
		respondError(w, http.StatusNotFound, "participant not found", id)
		return
	}
	j := s.sim.Journal()
	if j == nil {
		respondError(w, http.StatusServiceUnavailable, "journal disabled", "")
		return
	}

	snaps, err := j.ParticipantHistory(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "journal read failed", err.Error())
		return
	}
	respondJSON(w, HistoryResponse{Participant: id, RunID: j.RunID(), Snapshots: snaps})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	m := s.sim.Market()
	respondJSON(w, HealthResponse{
		Status:    "ok",
		Commodity: m.Commodity(),
		Round:     m.Round(),
		WSClients: s.hub.ClientCount(),
	})
}

// ==============================
// Broadcast Methods (called from the simulator hooks)
// ==============================

// BroadcastTrade pushes a trade to the trades channel
func (s *Server) BroadcastTrade(t orderbook.Trade) {
	s.hub.BroadcastToChannel(ChannelTrades, TradeMessage{Type: "trade", Trade: t})
}

// BroadcastRound pushes a round result to the rounds channel
func (s *Server) BroadcastRound(r sim.RoundReport) {
	s.hub.BroadcastToChannel(ChannelRounds, RoundMessage{
		Type:      "round",
		Round:     r.Round,
		Submitted: r.Submitted,
		Rejected:  r.Rejected,
		Dropped:   r.Dropped,
		Trades:    len(r.Trades),
		Volume:    r.Volume(),
		Summary:   r.Summary,
	})
}

// ==============================
// Helper Functions
// ==============================

func toLevels(levels []orderbook.PriceLevel) []PriceLevel {
	out := make([]PriceLevel, len(levels))
	for i, l := range levels {
		out[i] = PriceLevel{Price: l.Price, Size: l.Qty}
	}
	return out
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
