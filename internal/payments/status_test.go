package payments

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusAwaitingDelivery, true},
		{StatusProcessing, StatusPaid, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusAwaitingDelivery, false},
		// terminal: cuma override admin yang boleh keluar dari sini
		{StatusPaid, StatusFailed, false},
		{StatusPaid, StatusPending, false},
		{StatusFailed, StatusPaid, false},
		{StatusAwaitingDelivery, StatusPaid, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for s, want := range map[Status]bool{
		StatusPending:          false,
		StatusProcessing:       false,
		StatusPaid:             true,
		StatusFailed:           true,
		StatusAwaitingDelivery: true,
	} {
		if got := s.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, want)
		}
	}
}

func TestMethodValid(t *testing.T) {
	for _, m := range []Method{MethodVNPay, MethodMomo, MethodCOD} {
		if !m.Valid() {
			t.Errorf("%s should be valid", m)
		}
	}
	if Method("PAYPAL").Valid() {
		t.Error("unknown method should not be valid")
	}
}
