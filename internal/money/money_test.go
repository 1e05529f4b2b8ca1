package money

import (
	"encoding/json"
	"math"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Amount
		wantErr bool
	}{
		{"1.70", 170, false},
		{"1.7", 170, false},
		{"18", 1800, false},
		{"0.05", 5, false},
		{".5", 50, false},
		{"1.", 100, false},
		{"-3.25", -325, false},
		{" 15.00 ", 1500, false},
		{"", 0, true},
		{".", 0, true},
		{"1.234", 0, true},
		{"abc", 0, true},
		{"1.+5", 0, true},
		{"1e3", 0, true},
		{"92233720368547758.07", Max, false},
		{"-92233720368547758.07", -Max, false},
		{"92233720368547758.08", 0, true},
		{"92233720368547758.99", 0, true},
		{"92233720368547759", 0, true},
		{"99999999999999999999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Parse(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		in   Amount
		want string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{170, "1.70"},
		{1800, "18.00"},
		{-800, "-8.00"},
		{-5, "-0.05"},
	}

	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("Amount(%d).String() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestArithmetic(t *testing.T) {
	unit := MustParse("1.70")
	total := unit.Mul(3).Add(MustParse("1.00"))
	if total.String() != "6.10" {
		t.Errorf("3*1.70+1.00 = %s, want 6.10", total)
	}
	if total.Sub(MustParse("10.00")).String() != "-3.90" {
		t.Errorf("unexpected difference %s", total.Sub(MustParse("10.00")))
	}
	if total.Cmp(MustParse("6.10")) != 0 || total.Cmp(0) != 1 || Zero.Cmp(total) != -1 {
		t.Error("Cmp returned unexpected ordering")
	}
}

func TestJSON(t *testing.T) {
	var v struct {
		Balance Amount `json:"balance"`
		Quoted  Amount `json:"quoted"`
	}
	if err := json.Unmarshal([]byte(`{"balance": 12.3, "quoted": "4.05"}`), &v); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if v.Balance != 1230 || v.Quoted != 405 {
		t.Errorf("got %d and %d", v.Balance, v.Quoted)
	}

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"balance":12.30,"quoted":4.05}` {
		t.Errorf("Marshal = %s", data)
	}
}

func TestYAML(t *testing.T) {
	var v struct {
		Fee Amount `yaml:"fee"`
	}
	if err := yaml.Unmarshal([]byte("fee: 1.70\n"), &v); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if v.Fee != 170 {
		t.Errorf("Fee = %d, want 170", v.Fee)
	}

	if err := yaml.Unmarshal([]byte("fee: [1]\n"), &v); err == nil {
		t.Error("expected error for sequence value")
	}
}

func TestArithmeticSaturates(t *testing.T) {
	tests := []struct {
		name string
		got  Amount
		want Amount
	}{
		{"add overflow", Max.Add(1), Max},
		{"add underflow", Min.Add(-1), Min},
		{"add in range", Max.Add(-1), Max - 1},
		{"sub overflow", Max.Sub(-1), Max},
		{"sub underflow", Min.Sub(1), Min},
		{"sub in range", FromCents(5).Sub(FromCents(7)), FromCents(-2)},
		{"mul overflow", FromCents(170).Mul(math.MaxInt64 / 100), Max},
		{"mul negative overflow", FromCents(-170).Mul(math.MaxInt64 / 100), Min},
		{"mul min by minus one", Min.Mul(-1), Max},
		{"mul minus one by min", FromCents(-1).Mul(math.MinInt64), Max},
		{"mul in range", FromCents(170).Mul(1_000_000), FromCents(170_000_000)},
		{"mul zero", Max.Mul(0), Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %d, want %d", tt.got, tt.want)
			}
		})
	}
}

func TestAddChecked(t *testing.T) {
	if v, ok := FromCents(100).AddChecked(FromCents(50)); !ok || v != FromCents(150) {
		t.Errorf("AddChecked(1.00, 0.50) = %v, %v", v, ok)
	}
	if _, ok := Max.AddChecked(1); ok {
		t.Error("AddChecked should report overflow")
	}
	if _, ok := Min.AddChecked(-1); ok {
		t.Error("AddChecked should report underflow")
	}
}
