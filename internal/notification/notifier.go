// Package notification delivers trade alerts to external channels.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ganaka-trader/internal/execution"
	"ganaka-trader/internal/model"
	"ganaka-trader/internal/portfolio"
	"ganaka-trader/internal/strategy"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Symbol  string     `json:"symbol,omitempty"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	TS      time.Time  `json:"ts"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Multi sends every alert to all notifiers and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AlertFor converts a bot event into an alert. Only fills and the final
// summary produce alerts.
func AlertFor(ev model.Event) (Alert, bool) {
	switch data := ev.Data.(type) {
	case execution.Fill:
		a := Alert{Level: AlertInfo, Symbol: data.Symbol, TS: data.FilledAt}
		if data.Side == strategy.DecisionBuy {
			a.Title = "BUY " + data.Symbol
			a.Message = fmt.Sprintf("bought %d @ %s (%s)", data.Quantity, data.FillPrice.StringFixed(2), data.Signal.Reason)
			return a, true
		}
		a.Title = "SELL " + data.Symbol
		a.Message = fmt.Sprintf("sold %d @ %s, P&L %s (%s%%)", data.Quantity,
			data.FillPrice.StringFixed(2), data.PnL.StringFixed(2), data.PnLPct.StringFixed(2))
		if data.PnL.IsNegative() {
			a.Level = AlertWarning
		}
		return a, true
	case portfolio.Summary:
		if ev.Type != model.EventSummary {
			return Alert{}, false
		}
		status := "Profit"
		level := AlertInfo
		if !data.Profitable() {
			status = "Loss"
			level = AlertWarning
		}
		return Alert{
			Level: level,
			Title: "Session summary",
			Message: fmt.Sprintf("total %s, return %s (%s%%), %s",
				data.TotalValue.StringFixed(2), data.TotalReturn.StringFixed(2), data.ReturnPct.StringFixed(2), status),
			TS: ev.TS,
		}, true
	}
	return Alert{}, false
}

// Dispatcher forwards alert-worthy events to a Notifier.
type Dispatcher struct {
	notifier  Notifier
	timeout   time.Duration
	finalOnly bool
}

// NewDispatcher creates a dispatcher. Summaries are only forwarded when
// the event is marked final, so per-iteration summaries do not spam.
func NewDispatcher(n Notifier) *Dispatcher {
	return &Dispatcher{notifier: n, timeout: 10 * time.Second, finalOnly: true}
}

// Run consumes events until ctx is cancelled or ch is closed.
func (d *Dispatcher) Run(ctx context.Context, ch <-chan model.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			d.Handle(ctx, ev)
		}
	}
}

// Handle sends the alert for ev, if any. Delivery errors are logged.
func (d *Dispatcher) Handle(ctx context.Context, ev model.Event) {
	if ev.Type == model.EventSummary && d.finalOnly && ev.TraceID != model.TraceFinal {
		return
	}
	alert, ok := AlertFor(ev)
	if !ok {
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	if err := d.notifier.Send(sendCtx, alert); err != nil {
		log.Printf("[notify] deliver %q: %v", alert.Title, err)
	}
}
