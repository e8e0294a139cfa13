package gateway

import (
	"errors"
	"time"

	"github.com/sondv/phone-orders/internal/payments"
)

var (
	ErrInvalidSignature = errors.New("invalid gateway signature")
	ErrUnknownMethod    = errors.New("no adapter for payment method")
)

type PayRequest struct {
	PaymentID   int64
	OrderID     int64
	AmountCents int64
	ClientIP    string
	Now         time.Time
}

// Outcome hasil parse callback yang SUDAH lolos verifikasi signature.
type Outcome struct {
	TxnRef        string // reference yang kita kirim keluar (payment id)
	ExternalTxnID string // id transaksi di sisi gateway
	Code          string // response code mentah dari gateway
	Success       bool
}

// Adapter: strategi per provider. Satu fungsi kanonikalisasi dipakai
// baik untuk signing outbound maupun verifikasi inbound supaya keduanya
// tidak mungkin drift.
type Adapter interface {
	Method() payments.Method
	BuildPayURL(req PayRequest) (string, error)
	VerifyCallback(params map[string]string) error
	ParseOutcome(params map[string]string) Outcome
}

// Registry dispatch per payment method.
type Registry map[payments.Method]Adapter

func NewRegistry(adapters ...Adapter) Registry {
	reg := make(Registry, len(adapters))
	for _, a := range adapters {
		reg[a.Method()] = a
	}
	return reg
}

func (r Registry) For(m payments.Method) (Adapter, error) {
	a, ok := r[m]
	if !ok {
		return nil, ErrUnknownMethod
	}
	return a, nil
}
