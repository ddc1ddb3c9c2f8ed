package types

import (
	"encoding/json"
	"testing"
)

func TestAmountConstructors(t *testing.T) {
	tests := []struct {
		name    string
		amount  Amount
		display string
	}{
		{"Zero", NewAmount(0), "0"},
		{"Small", NewAmount(42), "42"},
		{"Uint64Max", NewAmount(18446744073709551615), "18446744073709551615"},
		{"Parsed", MustAmount("1000000000000000000"), "1000000000000000000"},
		{"Huge", MustAmount("115792089237316195423570985008687907853269984665640564039457"), "115792089237316195423570985008687907853269984665640564039457"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.amount.String(); got != tt.display {
				t.Errorf("String: got %s, want %s", got, tt.display)
			}
		})
	}
}

func TestParseAmountInvalid(t *testing.T) {
	for _, s := range []string{"", "-1", "1.5", "abc", "0x10"} {
		if _, err := ParseAmount(s); err == nil {
			t.Errorf("ParseAmount(%q): expected error", s)
		}
	}
}

func TestAmountArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Amount
		expected Amount
	}{
		{"Add", func() Amount { return NewAmount(100).Add(NewAmount(200)) }, NewAmount(300)},
		{"Sub", func() Amount { return NewAmount(500).Sub(NewAmount(200)) }, NewAmount(300)},
		{"ScaleBy floor", func() Amount { return NewAmount(1000).ScaleBy(15, 100) }, NewAmount(150)},
		{"ScaleBy rounds down", func() Amount { return NewAmount(999).ScaleBy(1, 100) }, NewAmount(9)},
		{"Min left", func() Amount { return NewAmount(3).Min(NewAmount(7)) }, NewAmount(3)},
		{"Min right", func() Amount { return NewAmount(9).Min(NewAmount(7)) }, NewAmount(7)},
		{"Sum", func() Amount { return SumAmounts(NewAmount(1), NewAmount(2), NewAmount(3)) }, NewAmount(6)},
		{"Pow10", func() Amount { return Pow10(6) }, NewAmount(1000000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestAmountMulDiv(t *testing.T) {
	// 512-bit intermediate: (2^200 * 2^100) / 2^100 == 2^200
	big := MustAmount("1606938044258990275541962092341162602522202993782792835301376") // 2^200
	shift := MustAmount("1267650600228229401496703205376")                             // 2^100

	got, err := big.MulDiv(shift, shift)
	if err != nil {
		t.Fatalf("MulDiv: %v", err)
	}
	if !got.Equal(big) {
		t.Errorf("Got %v, want %v", got, big)
	}

	if _, err := big.MulDiv(shift, ZeroAmount); err == nil {
		t.Error("Expected error for zero denominator")
	}
	if _, err := big.MulDiv(big, NewAmount(1)); err == nil {
		t.Error("Expected overflow error for 2^400")
	}
}

func TestAmountSubUnderflowPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for underflow")
		}
	}()
	_ = NewAmount(1).Sub(NewAmount(2))
}

func TestAmountJSON(t *testing.T) {
	tests := []struct {
		name   string
		amount Amount
		want   string
	}{
		{"Zero", NewAmount(0), `"0"`},
		{"Large", MustAmount("340282366920938463463374607431768211456"), `"340282366920938463463374607431768211456"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.amount)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal: got %s, want %s", data, tt.want)
			}

			var back Amount
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if !back.Equal(tt.amount) {
				t.Errorf("Round-trip: got %v, want %v", back, tt.amount)
			}
		})
	}
}

func TestAmountScan(t *testing.T) {
	var a Amount
	if err := a.Scan("12345"); err != nil {
		t.Fatalf("Scan string: %v", err)
	}
	if !a.Equal(NewAmount(12345)) {
		t.Errorf("Scan string: got %v", a)
	}

	if err := a.Scan([]byte("678")); err != nil {
		t.Fatalf("Scan bytes: %v", err)
	}
	if !a.Equal(NewAmount(678)) {
		t.Errorf("Scan bytes: got %v", a)
	}

	if err := a.Scan(int64(-1)); err == nil {
		t.Error("Scan negative: expected error")
	}
}
