package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ganaka-trader/internal/execution"
	"ganaka-trader/internal/model"
	"ganaka-trader/internal/portfolio"
	"ganaka-trader/internal/strategy"

	"github.com/shopspring/decimal"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

func (r *recordingNotifier) Send(_ context.Context, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return r.err
}

func sellFill(pnl string) execution.Fill {
	return execution.Fill{
		Side:      strategy.DecisionSell,
		Symbol:    "TCS",
		Quantity:  3,
		FillPrice: decimal.RequireFromString("3400"),
		PnL:       decimal.RequireFromString(pnl),
		PnLPct:    decimal.RequireFromString("-1.5"),
	}
}

func TestAlertFor(t *testing.T) {
	buy := execution.Fill{
		Side:      strategy.DecisionBuy,
		Symbol:    "INFY",
		Quantity:  6,
		FillPrice: decimal.RequireFromString("1500"),
		Signal:    strategy.Signal{Reason: "bullish trend"},
	}
	a, ok := AlertFor(model.Event{Type: model.EventFill, Data: buy})
	if !ok || a.Title != "BUY INFY" || a.Level != AlertInfo {
		t.Fatalf("buy alert = %+v ok=%v", a, ok)
	}
	if !strings.Contains(a.Message, "bought 6 @ 1500.00") {
		t.Errorf("unexpected message %q", a.Message)
	}

	a, ok = AlertFor(model.Event{Type: model.EventFill, Data: sellFill("-150")})
	if !ok || a.Level != AlertWarning {
		t.Errorf("losing sell should warn, got %+v", a)
	}

	if _, ok := AlertFor(model.Event{Type: model.EventSignal, Data: strategy.Signal{}}); ok {
		t.Error("signals should not alert")
	}
}

func TestDispatcher_SummaryOnlyWhenFinal(t *testing.T) {
	rec := &recordingNotifier{}
	d := NewDispatcher(rec)
	sum := portfolio.Summary{TotalReturn: decimal.NewFromInt(-10)}

	d.Handle(context.Background(), model.Event{Type: model.EventSummary, TraceID: "iter-1", Data: sum})
	d.Handle(context.Background(), model.Event{Type: model.EventSummary, TraceID: model.TraceFinal, Data: sum})

	if len(rec.alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(rec.alerts))
	}
	if !strings.Contains(rec.alerts[0].Message, "Loss") {
		t.Errorf("expected Loss status, got %q", rec.alerts[0].Message)
	}
}

func TestMulti_JoinsErrors(t *testing.T) {
	ok := &recordingNotifier{}
	bad := &recordingNotifier{err: errors.New("down")}
	err := Multi{ok, bad}.Send(context.Background(), Alert{Title: "x"})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Errorf("expected joined error, got %v", err)
	}
	if len(ok.alerts) != 1 {
		t.Error("healthy notifier should still receive the alert")
	}
}

func TestWebhookNotifier_Send(t *testing.T) {
	var got Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	ts := time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)
	if err := n.Send(context.Background(), Alert{Level: AlertInfo, Symbol: "SBIN", Title: "BUY SBIN", TS: ts}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.Symbol != "SBIN" || !got.TS.Equal(ts) {
		t.Errorf("server received %+v", got)
	}
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewWebhookNotifier(srv.URL).Send(context.Background(), Alert{}); err == nil {
		t.Error("expected error on 502")
	}
}

func TestTelegramNotifier_Send(t *testing.T) {
	var path string
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42")
	n.baseURL = srv.URL
	if err := n.Send(context.Background(), Alert{Level: AlertWarning, Title: "SELL TCS", Message: "P&L -1.5"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if path != "/botTOKEN/sendMessage" {
		t.Errorf("path = %q", path)
	}
	if body["chat_id"] != "42" || !strings.Contains(body["text"], `P&L \-1\.5`) {
		t.Errorf("unexpected body %v", body)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	if got := escapeMarkdown("a_b.c"); got != `a\_b\.c` {
		t.Errorf("escapeMarkdown = %q", got)
	}
}
