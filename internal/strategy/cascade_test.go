package strategy

import "testing"

func TestCascade_RuleTable(t *testing.T) {
	c := NewCascade(DefaultRules(DefaultThresholds()))

	cases := []struct {
		name string
		in   Inputs
		want Decision
	}{
		{"oversold reversal", Inputs{RSI: 25, SMAShort: 100, SMALong: 100, Price: 101}, DecisionBuy},
		{"overbought reversal", Inputs{RSI: 75, SMAShort: 100, SMALong: 100, Price: 99}, DecisionSell},
		{"bullish trend", Inputs{RSI: 50, SMAShort: 105, SMALong: 100, Price: 106}, DecisionBuy},
		{"bearish trend", Inputs{RSI: 50, SMAShort: 95, SMALong: 100, Price: 94}, DecisionSell},
		{"flat", Inputs{RSI: 50, SMAShort: 100, SMALong: 100, Price: 100}, DecisionHold},
		{"oversold but below SMA, no trend", Inputs{RSI: 20, SMAShort: 100, SMALong: 100, Price: 99}, DecisionHold},
		{"boundary rsi=30 not oversold", Inputs{RSI: 30, SMAShort: 100, SMALong: 100, Price: 101}, DecisionHold},
		{"boundary rsi=70 not overbought", Inputs{RSI: 70, SMAShort: 100, SMALong: 100, Price: 99}, DecisionHold},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Decide(tc.in); got != tc.want {
				t.Errorf("Decide(%+v) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}
}

func TestCascade_FirstMatchWins(t *testing.T) {
	c := NewCascade(DefaultRules(DefaultThresholds()))

	// rsi=20, smaShort=105, smaLong=100, price=110: both the oversold
	// reversal and the bullish trend rule hold; the reversal comes first.
	in := Inputs{RSI: 20, SMAShort: 105, SMALong: 100, Price: 110}
	r, ok := c.Match(in)
	if !ok || r.Name != RuleOversoldReversal || r.Decision != DecisionBuy {
		t.Fatalf("expected %s BUY, got %+v (ok=%v)", RuleOversoldReversal, r, ok)
	}

	// Overbought below short SMA with short < long: the reversal and the
	// bearish trend rule both hold; the reversal comes first.
	in = Inputs{RSI: 80, SMAShort: 105, SMALong: 110, Price: 100}
	r, _ = c.Match(in)
	if r.Name != RuleOverboughtReversal {
		t.Errorf("expected %s, got %s", RuleOverboughtReversal, r.Name)
	}
}

func TestCascade_OrderIsRespected(t *testing.T) {
	always := func(Inputs) bool { return true }
	c := NewCascade([]Rule{
		{Name: "first", Decision: DecisionSell, Match: always},
		{Name: "second", Decision: DecisionBuy, Match: always},
	})
	if got := c.Decide(Inputs{}); got != DecisionSell {
		t.Errorf("expected first rule to win, got %s", got)
	}
	if names := c.Rules(); len(names) != 2 || names[0] != "first" {
		t.Errorf("unexpected rule order %v", names)
	}
}

func TestCascade_Deterministic(t *testing.T) {
	c := NewCascade(DefaultRules(DefaultThresholds()))
	in := Inputs{RSI: 41.3, SMAShort: 101.2, SMALong: 99.7, Price: 102.4}
	first := c.Decide(in)
	for i := 0; i < 100; i++ {
		if got := c.Decide(in); got != first {
			t.Fatalf("iteration %d: got %s, want %s", i, got, first)
		}
	}
}

func TestThresholds_Validate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Errorf("defaults should be valid: %v", err)
	}
	for _, th := range []Thresholds{{70, 30}, {50, 50}, {-1, 70}, {30, 101}} {
		if err := th.Validate(); err == nil {
			t.Errorf("expected error for %+v", th)
		}
	}
}

func TestCascade_CustomThresholds(t *testing.T) {
	c := NewCascade(DefaultRules(Thresholds{Oversold: 40, Overbought: 60}))
	in := Inputs{RSI: 35, SMAShort: 100, SMALong: 100, Price: 101}
	if got := c.Decide(in); got != DecisionBuy {
		t.Errorf("expected BUY with oversold=40, got %s", got)
	}
}
