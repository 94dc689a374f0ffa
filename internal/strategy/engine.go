// Package strategy turns indicator sets into trading decisions.
//
// Decisions come from an ordered rule cascade: rules are evaluated in order
// and the first match wins, so tie-breaking is explicit in the rule slice.
// The Engine resolves unavailable indicators before the cascade runs.
package strategy

import (
	"fmt"
	"strings"
	"time"

	"ganaka-trader/internal/indicator"
)

// Decision is the outcome of one evaluation.
type Decision string

const (
	DecisionBuy  Decision = "BUY"
	DecisionSell Decision = "SELL"
	DecisionHold Decision = "HOLD"
)

// NeutralRSI substitutes a missing RSI in FallbackNeutral mode.
const NeutralRSI = 50.0

// FallbackMode controls how unavailable indicators are handled.
type FallbackMode string

const (
	// FallbackNeutral substitutes the current price for missing SMAs and
	// NeutralRSI for a missing RSI, then runs the cascade.
	FallbackNeutral FallbackMode = "neutral"
	// FallbackHold returns HOLD whenever any indicator is unavailable.
	FallbackHold FallbackMode = "hold"
)

// ParseFallbackMode parses "neutral" or "hold" (case-insensitive).
func ParseFallbackMode(s string) (FallbackMode, error) {
	switch m := FallbackMode(strings.ToLower(strings.TrimSpace(s))); m {
	case FallbackNeutral, FallbackHold:
		return m, nil
	case "":
		return FallbackNeutral, nil
	default:
		return "", fmt.Errorf("unknown fallback mode %q", s)
	}
}

// Signal is the decision emitted for a symbol, with the inputs that produced it.
type Signal struct {
	StrategyName string    `json:"strategy_name"`
	Symbol       string    `json:"symbol"`
	Decision     Decision  `json:"decision"`
	Rule         string    `json:"rule,omitempty"`
	Reason       string    `json:"reason"`
	Inputs       Inputs    `json:"inputs"`
	Substituted  bool      `json:"substituted"` // a missing indicator was replaced
	TS           time.Time `json:"ts"`
}

// Actionable reports whether the signal asks for a ledger mutation.
func (s Signal) Actionable() bool {
	return s.Decision == DecisionBuy || s.Decision == DecisionSell
}

// Engine evaluates indicator sets through a Cascade.
type Engine struct {
	name    string
	cascade *Cascade
	mode    FallbackMode
	now     func() time.Time
}

// NewEngine creates an Engine. An empty mode means FallbackNeutral.
func NewEngine(name string, cascade *Cascade, mode FallbackMode) *Engine {
	if mode == "" {
		mode = FallbackNeutral
	}
	return &Engine{
		name:    name,
		cascade: cascade,
		mode:    mode,
		now:     time.Now,
	}
}

// Name returns the strategy name stamped on signals.
func (e *Engine) Name() string { return e.name }

// Mode returns the configured fallback mode.
func (e *Engine) Mode() FallbackMode { return e.mode }

// Evaluate produces the signal for symbol from its indicator set.
func (e *Engine) Evaluate(symbol string, set indicator.Set) Signal {
	in, substituted := Resolve(set)
	sig := Signal{
		StrategyName: e.name,
		Symbol:       symbol,
		Inputs:       in,
		Substituted:  substituted,
		TS:           e.now(),
	}

	if substituted && e.mode == FallbackHold {
		sig.Decision = DecisionHold
		sig.Reason = "insufficient history"
		return sig
	}

	rule, ok := e.cascade.Match(in)
	if !ok {
		sig.Decision = DecisionHold
		sig.Reason = "no clear trend"
		return sig
	}
	sig.Decision = rule.Decision
	sig.Rule = rule.Name
	sig.Reason = rule.Reason
	return sig
}

// Resolve converts an indicator set into cascade inputs, substituting the
// current price for missing SMAs and NeutralRSI for a missing RSI.
// The bool reports whether any substitution happened.
func Resolve(set indicator.Set) (Inputs, bool) {
	in := Inputs{
		RSI:      set.RSI.Or(NeutralRSI),
		SMAShort: set.SMAShort.Or(set.Price),
		SMALong:  set.SMALong.Or(set.Price),
		Price:    set.Price,
	}
	return in, !set.Complete()
}
