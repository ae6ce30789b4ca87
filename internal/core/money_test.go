package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{".5", 50, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"١٢", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyFromAmount(t *testing.T) {
	cases := []struct {
		in  float64
		out int64
	}{
		{12.34, 1234},
		{1.999, 200},
		{100, 10000},
		{-2.5, -250},
	}
	for _, tc := range cases {
		if got := MoneyFromAmount(tc.in).Cents; got != tc.out {
			t.Errorf("MoneyFromAmount(%v) = %d, want %d", tc.in, got, tc.out)
		}
	}
}

func TestFormatEuros(t *testing.T) {
	cases := []struct {
		cents int64
		out   string
	}{
		{0, "€ 0,00"},
		{5, "€ 0,05"},
		{123456, "€ 1.234,56"},
		{100000000, "€ 1.000.000,00"},
		{-250, "-€ 2,50"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).FormatEuros(); got != tc.out {
			t.Errorf("FormatEuros(%d) = %q, want %q", tc.cents, got, tc.out)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}
