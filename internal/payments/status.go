package payments

type Method string

const (
	MethodVNPay Method = "VNPAY"
	MethodMomo  Method = "MOMO"
	MethodCOD   Method = "COD"
)

func (m Method) Valid() bool {
	switch m {
	case MethodVNPay, MethodMomo, MethodCOD:
		return true
	}
	return false
}

type Status string

const (
	StatusPending          Status = "PENDING"
	StatusProcessing       Status = "PROCESSING"
	StatusPaid             Status = "PAID"
	StatusFailed           Status = "FAILED"
	StatusAwaitingDelivery Status = "AWAITING_DELIVERY"
)

// PAID / FAILED / AWAITING_DELIVERY terminal di alur normal; hanya
// override admin yang boleh keluar dari situ.
var validNext = map[Status]map[Status]bool{
	StatusPending:          {StatusProcessing: true, StatusPaid: true, StatusFailed: true, StatusAwaitingDelivery: true},
	StatusProcessing:       {StatusPaid: true, StatusFailed: true},
	StatusPaid:             {},
	StatusFailed:           {},
	StatusAwaitingDelivery: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Terminal() bool {
	return len(validNext[s]) == 0
}
