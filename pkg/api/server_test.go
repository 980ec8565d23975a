package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/uhyunpark/marketsim/pkg/app/core/account"
	"github.com/uhyunpark/marketsim/pkg/app/core/market"
	"github.com/uhyunpark/marketsim/pkg/app/core/orderbook"
	"github.com/uhyunpark/marketsim/pkg/decision"
	"github.com/uhyunpark/marketsim/pkg/metrics"
	"github.com/uhyunpark/marketsim/pkg/sim"
	"github.com/uhyunpark/marketsim/pkg/storage"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newTestSim builds bob and charlie with a provider that makes them trade
// 15 @ 10.50 every round.
func newTestSim(t *testing.T, withJournal bool) *sim.Simulator {
	t.Helper()
	bob, _ := account.NewParticipant("bob", account.RoleBuyer, d("500"), 0, "Strategic buyer")
	charlie, _ := account.NewParticipant("charlie", account.RoleSeller, d("150"), 40, "Aggressive seller")
	reg, err := account.NewRegistry(bob, charlie)
	if err != nil {
		t.Fatal(err)
	}

	opts := sim.Options{
		Market:       market.NewMarket("wheat"),
		Participants: reg,
		Metrics:      metrics.New(),
		Provider: decision.ProviderFunc(func(_ context.Context, st account.StateSummary, _ market.Summary) (*orderbook.Order, error) {
			if st.ID == "bob" {
				return &orderbook.Order{Side: orderbook.Buy, Quantity: 15, Price: d("11")}, nil
			}
			return &orderbook.Order{Side: orderbook.Sell, Quantity: 15, Price: d("10")}, nil
		}),
	}
	if withJournal {
		j, err := storage.OpenJournal("")
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = j.Close() })
		opts.Journal = j
	}
	s, err := sim.New(opts)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func get(t *testing.T, h http.Handler, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return rec.Code
}

func TestRESTEndpoints(t *testing.T) {
	s := newTestSim(t, true)
	if _, err := s.RunRound(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	h := NewServer(s, nil).Handler()

	var health HealthResponse
	if code := get(t, h, "/health", &health); code != http.StatusOK || health.Status != "ok" || health.Round != 1 {
		t.Errorf("health = %d %+v", code, health)
	}

	var m MarketInfo
	if code := get(t, h, "/api/v1/market", &m); code != http.StatusOK || m.TotalTrades != 1 || m.Commodity != "wheat" {
		t.Errorf("market = %d %+v", code, m)
	}
	if m.LastPrice == nil || !m.LastPrice.Equal(d("10.5")) {
		t.Errorf("last price = %v", m.LastPrice)
	}

	var book OrderbookSnapshot
	if code := get(t, h, "/api/v1/market/orderbook", &book); code != http.StatusOK || len(book.Bids) != 0 || len(book.Asks) != 0 {
		t.Errorf("orderbook after clearing = %d %+v", code, book)
	}

	var trades []orderbook.Trade
	if code := get(t, h, "/api/v1/market/trades?limit=5", &trades); code != http.StatusOK || len(trades) != 1 || trades[0].Quantity != 15 {
		t.Errorf("trades = %d %+v", code, trades)
	}
	if code := get(t, h, "/api/v1/market/trades?limit=zero", nil); code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", code)
	}

	var round RoundTradesResponse
	if code := get(t, h, "/api/v1/rounds/1/trades", &round); code != http.StatusOK || len(round.Trades) != 1 || round.RunID == "" {
		t.Errorf("round trades = %d %+v", code, round)
	}

	var parts []ParticipantInfo
	if code := get(t, h, "/api/v1/participants", &parts); code != http.StatusOK || len(parts) != 2 || parts[0].ID != "bob" {
		t.Fatalf("participants = %d %+v", code, parts)
	}
	// 342.50 money + 15 units at 10.50
	if !parts[0].Money.Equal(d("342.5")) || parts[0].Inventory != 15 || !parts[0].EstimatedValue.Equal(d("500")) {
		t.Errorf("bob = %+v", parts[0])
	}

	var one ParticipantInfo
	if code := get(t, h, "/api/v1/participants/charlie", &one); code != http.StatusOK || one.Inventory != 25 || one.TotalTrades != 1 {
		t.Errorf("charlie = %d %+v", code, one)
	}
	if code := get(t, h, "/api/v1/participants/nobody", nil); code != http.StatusNotFound {
		t.Errorf("unknown participant status = %d", code)
	}

	var hist HistoryResponse
	if code := get(t, h, "/api/v1/participants/bob/history", &hist); code != http.StatusOK || len(hist.Snapshots) != 1 || hist.Snapshots[0].Round != 1 {
		t.Errorf("history = %d %+v", code, hist)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "marketsim_trades_total 1") {
		t.Errorf("metrics body:\n%s", rec.Body.String())
	}
}

func TestJournalEndpointsWithoutJournal(t *testing.T) {
	h := NewServer(newTestSim(t, false), nil).Handler()

	if code := get(t, h, "/api/v1/rounds/1/trades", nil); code != http.StatusServiceUnavailable {
		t.Errorf("round trades status = %d", code)
	}
	if code := get(t, h, "/api/v1/participants/bob/history", nil); code != http.StatusServiceUnavailable {
		t.Errorf("history status = %d", code)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketStreamsTradesAndRounds(t *testing.T) {
	s := newTestSim(t, false)
	srv := NewServer(s, nil)
	go srv.Hub().Run()
	t.Cleanup(srv.Hub().Stop)

	s.OnTrade = srv.BroadcastTrade
	s.OnRound = srv.BroadcastRound

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(WSSubscribeRequest{Op: "subscribe", Channels: []string{ChannelTrades, ChannelRounds}}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	waitFor(t, func() bool { return srv.Hub().Subscribers(ChannelRounds) == 1 })

	if _, err := s.RunRound(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var tm TradeMessage
	if err := conn.ReadJSON(&tm); err != nil {
		t.Fatalf("read trade: %v", err)
	}
	if tm.Type != "trade" || tm.Trade.BuyerID != "bob" || !tm.Trade.Price.Equal(d("10.5")) {
		t.Errorf("trade message = %+v", tm)
	}

	var rm RoundMessage
	if err := conn.ReadJSON(&rm); err != nil {
		t.Fatalf("read round: %v", err)
	}
	if rm.Type != "round" || rm.Round != 1 || rm.Trades != 1 || rm.Volume != 15 {
		t.Errorf("round message = %+v", rm)
	}
}

func TestHubStopIsIdempotent(t *testing.T) {
	srv := NewServer(newTestSim(t, false), nil)
	done := make(chan struct{})
	go func() {
		srv.Hub().Run()
		close(done)
	}()

	srv.Hub().Stop()
	srv.Hub().Stop()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("hub did not stop")
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown without Start: %v", err)
	}
}

func startAsync(srv *Server) <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- srv.Start("127.0.0.1:0") }()
	return errc
}

func TestStartAfterShutdownReturns(t *testing.T) {
	srv := NewServer(newTestSim(t, false), nil)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case err := <-startAsync(srv):
		if err != nil {
			t.Errorf("Start = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start kept serving after Shutdown")
	}
}

func TestShutdownRacingStartStopsServer(t *testing.T) {
	for i := 0; i < 20; i++ {
		srv := NewServer(newTestSim(t, false), nil)
		errc := startAsync(srv)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := srv.Shutdown(ctx)
		cancel()
		if err != nil {
			t.Fatalf("Shutdown: %v", err)
		}
		select {
		case err := <-errc:
			if err != nil {
				t.Fatalf("Start = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("iteration %d: Start kept serving after Shutdown", i)
		}
	}
}
