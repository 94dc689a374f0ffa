package strategy

import "fmt"

// Inputs are the resolved values a rule inspects.
type Inputs struct {
	RSI      float64 `json:"rsi"`
	SMAShort float64 `json:"sma_short"`
	SMALong  float64 `json:"sma_long"`
	Price    float64 `json:"price"`
}

// Rule pairs a predicate with the decision it yields.
type Rule struct {
	Name     string
	Reason   string
	Decision Decision
	Match    func(Inputs) bool
}

// Thresholds are the RSI bounds used by the reversal rules.
type Thresholds struct {
	Oversold   float64 `yaml:"oversold" json:"oversold"`
	Overbought float64 `yaml:"overbought" json:"overbought"`
}

// DefaultThresholds returns the classic 30/70 bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{Oversold: 30, Overbought: 70}
}

// Validate rejects inverted or out-of-range bounds.
func (t Thresholds) Validate() error {
	if t.Oversold < 0 || t.Overbought > 100 || t.Oversold >= t.Overbought {
		return fmt.Errorf("invalid RSI thresholds oversold=%.2f overbought=%.2f", t.Oversold, t.Overbought)
	}
	return nil
}

// Rule names, in default cascade order.
const (
	RuleOversoldReversal   = "oversold_reversal"
	RuleOverboughtReversal = "overbought_reversal"
	RuleBullishTrend       = "bullish_trend"
	RuleBearishTrend       = "bearish_trend"
)

// DefaultRules returns the reversal rules followed by the trend rules.
func DefaultRules(th Thresholds) []Rule {
	return []Rule{
		{
			Name:     RuleOversoldReversal,
			Reason:   "oversold + above short SMA",
			Decision: DecisionBuy,
			Match: func(in Inputs) bool {
				return in.RSI < th.Oversold && in.Price > in.SMAShort
			},
		},
		{
			Name:     RuleOverboughtReversal,
			Reason:   "overbought + below short SMA",
			Decision: DecisionSell,
			Match: func(in Inputs) bool {
				return in.RSI > th.Overbought && in.Price < in.SMAShort
			},
		},
		{
			Name:     RuleBullishTrend,
			Reason:   "bullish trend",
			Decision: DecisionBuy,
			Match: func(in Inputs) bool {
				return in.SMAShort > in.SMALong && in.Price > in.SMAShort
			},
		},
		{
			Name:     RuleBearishTrend,
			Reason:   "bearish trend",
			Decision: DecisionSell,
			Match: func(in Inputs) bool {
				return in.SMAShort < in.SMALong && in.Price < in.SMAShort
			},
		},
	}
}

// Cascade is an ordered list of rules; the first match wins.
type Cascade struct {
	rules []Rule
}

// NewCascade copies rules into a new Cascade.
func NewCascade(rules []Rule) *Cascade {
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	return &Cascade{rules: cp}
}

// Rules returns the rule names in evaluation order.
func (c *Cascade) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

// Match returns the first rule whose predicate holds.
func (c *Cascade) Match(in Inputs) (Rule, bool) {
	for _, r := range c.rules {
		if r.Match(in) {
			return r, true
		}
	}
	return Rule{}, false
}

// Decide returns the decision for in, HOLD when no rule matches.
func (c *Cascade) Decide(in Inputs) Decision {
	if r, ok := c.Match(in); ok {
		return r.Decision
	}
	return DecisionHold
}
