package orders

import (
	"errors"
	"testing"
)

func validInput() CreateOrderInput {
	return CreateOrderInput{
		Lines: []LineInput{
			{ProductID: 1, Qty: 2},
			{ProductID: 2, Qty: 1},
		},
		Shipping: Shipping{Address: "12 Ly Thuong Kiet, Ha Noi", PhoneNumber: "0901234567", FeeCents: 2000},
	}
}

func TestValidateInput(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateOrderInput)
		ok     bool
	}{
		{"valid", func(*CreateOrderInput) {}, true},
		{"no lines", func(in *CreateOrderInput) { in.Lines = nil }, false},
		{"zero qty", func(in *CreateOrderInput) { in.Lines[0].Qty = 0 }, false},
		{"negative qty", func(in *CreateOrderInput) { in.Lines[1].Qty = -3 }, false},
		{"bad product id", func(in *CreateOrderInput) { in.Lines[0].ProductID = 0 }, false},
		{"duplicate product", func(in *CreateOrderInput) { in.Lines[1].ProductID = 1 }, false},
		{"negative shipping fee", func(in *CreateOrderInput) { in.Shipping.FeeCents = -1 }, false},
		{"missing address", func(in *CreateOrderInput) { in.Shipping.Address = "" }, false},
		{"missing phone", func(in *CreateOrderInput) { in.Shipping.PhoneNumber = "" }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			err := ValidateInput(in)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrValidation) {
				t.Fatalf("got %v, want ErrValidation", err)
			}
		})
	}
}

// 2 x 10000 + 1 x 30000 tanpa diskon, ongkir 2000 -> 52000.
func TestFinalTotal(t *testing.T) {
	subtotal := int64(2*10000 + 1*30000)
	if got := FinalTotal(subtotal, 0, 2000); got != 52000 {
		t.Fatalf("FinalTotal = %d, want 52000", got)
	}
	if got := FinalTotal(subtotal, 5000, 2000); got != 47000 {
		t.Fatalf("FinalTotal with discount = %d, want 47000", got)
	}
	// diskon penuh: total tinggal ongkir
	if got := FinalTotal(subtotal, subtotal, 2000); got != 2000 {
		t.Fatalf("FinalTotal fully discounted = %d, want 2000", got)
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, false},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusPending, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestPartitionKey(t *testing.T) {
	if string(PartitionKey(42)) != "42" {
		t.Fatalf("PartitionKey(42) = %s", PartitionKey(42))
	}
}
