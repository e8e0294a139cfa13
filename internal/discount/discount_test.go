package discount

import (
	"errors"
	"testing"
	"time"
)

func validCode() *Code {
	return &Code{
		ID:            1,
		Code:          "WELCOME10",
		Percentage:    10,
		MinOrderCents: 20000,
		ValidFrom:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidTo:       time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestValidate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		mutate   func(*Code)
		subtotal int64
		at       time.Time
		want     error
	}{
		{name: "ok", mutate: func(*Code) {}, subtotal: 50000, at: now, want: nil},
		{name: "already used", mutate: func(d *Code) { d.Used = true }, subtotal: 50000, at: now, want: ErrAlreadyUsed},
		{name: "not yet active", mutate: func(*Code) {}, subtotal: 50000,
			at: time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC), want: ErrNotYetActive},
		{name: "expired", mutate: func(*Code) {}, subtotal: 50000,
			at: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), want: ErrExpired},
		{name: "minimum not met", mutate: func(*Code) {}, subtotal: 19999, at: now, want: ErrMinimumNotMet},
		{name: "exactly at minimum", mutate: func(*Code) {}, subtotal: 20000, at: now, want: nil},
		{name: "window start inclusive", mutate: func(*Code) {}, subtotal: 50000,
			at: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := validCode()
			tc.mutate(d)
			err := Validate(d, tc.subtotal, tc.at)
			if tc.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestValidate_NilIsNotFound(t *testing.T) {
	if err := Validate(nil, 1000, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestAmount(t *testing.T) {
	cases := []struct {
		subtotal int64
		pct      int
		want     int64
	}{
		{50000, 10, 5000},
		{50000, 100, 50000},
		{999, 10, 99}, // pembulatan integer ke bawah
		{0, 10, 0},
		{50000, 0, 0},
		{-100, 10, 0},
	}
	for _, tc := range cases {
		if got := Amount(tc.subtotal, tc.pct); got != tc.want {
			t.Errorf("Amount(%d, %d) = %d, want %d", tc.subtotal, tc.pct, got, tc.want)
		}
	}
}

// Diskon tidak boleh melebihi subtotal — total akhir tidak pernah
// turun di bawah ongkir.
func TestAmount_CappedAtSubtotal(t *testing.T) {
	if got := Amount(100, 150); got != 100 {
		t.Fatalf("Amount(100, 150) = %d, want 100", got)
	}
}
