package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculateDiscountAmount(t *testing.T) {
	cases := []struct {
		name         string
		subTotal     string
		discount     string
		discountType string
		expected     string
	}{
		{"percentage", "250", "10", "PERCENTAGE", "25"},
		{"fixed", "250", "30", "FIXED", "30"},
		{"fixed clamped to subtotal", "100", "500", "FIXED", "100"},
		{"percentage over hundred clamped", "200", "150", "PERCENTAGE", "200"},
		{"zero discount", "250", "0", "PERCENTAGE", "0"},
		{"negative discount treated as zero", "250", "-5", "FIXED", "0"},
	}
	for _, tc := range cases {
		subTotal, _ := decimal.NewFromString(tc.subTotal)
		discount, _ := decimal.NewFromString(tc.discount)
		got := CalculateDiscountAmount(subTotal, discount, tc.discountType)
		if got.String() != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expected, got.String())
		}
	}
}

func TestCalculateTaxAmount(t *testing.T) {
	cases := []struct {
		name        string
		taxableBase string
		taxRate     string
		expected    string
	}{
		{"eight percent", "225", "8", "18"},
		{"zero rate", "225", "0", "0"},
		{"zero base", "0", "8", "0"},
		{"negative base", "-10", "8", "0"},
	}
	for _, tc := range cases {
		base, _ := decimal.NewFromString(tc.taxableBase)
		rate, _ := decimal.NewFromString(tc.taxRate)
		got := CalculateTaxAmount(base, rate)
		if got.String() != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expected, got.String())
		}
	}
}

func TestCalculateDownPaymentAmount(t *testing.T) {
	cases := []struct {
		name            string
		total           string
		downPayment     string
		downPaymentType string
		expected        string
	}{
		{"percentage of post-tax total", "243", "20", "PERCENTAGE", "48.6"},
		{"fixed", "243", "50", "FIXED", "50"},
		{"fixed clamped to total", "243", "500", "FIXED", "243"},
		{"zero", "243", "0", "PERCENTAGE", "0"},
		{"negative treated as zero", "243", "-20", "FIXED", "0"},
	}
	for _, tc := range cases {
		total, _ := decimal.NewFromString(tc.total)
		down, _ := decimal.NewFromString(tc.downPayment)
		got := CalculateDownPaymentAmount(total, down, tc.downPaymentType)
		if got.String() != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expected, got.String())
		}
	}
}

func TestRoundMoney(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"48.605", "48.61"},
		{"48.6", "48.6"},
		{"194.3999", "194.4"},
		{"0", "0"},
	}
	for _, tc := range cases {
		d, _ := decimal.NewFromString(tc.in)
		got := RoundMoney(d)
		if got.String() != tc.expected {
			t.Fatalf("RoundMoney(%s) expected %s, got %s", tc.in, tc.expected, got.String())
		}
	}
}
