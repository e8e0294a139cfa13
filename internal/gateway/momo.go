package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/sondv/phone-orders/internal/payments"
)

// Momo menandatangani string raw berurutan tetap dengan HMAC-SHA256 —
// skema berbeda dari VNPay; adapter inilah yang menanggung perbedaannya.
type Momo struct {
	PartnerCode string
	AccessKey   string
	SecretKey   string
	PayURL      string
	ReturnURL   string
}

const (
	momoRequestType = "captureWallet"
	MomoCodeSuccess = "0"
)

func NewMomo(partnerCode, accessKey, secretKey, payURL, returnURL string) *Momo {
	return &Momo{PartnerCode: partnerCode, AccessKey: accessKey, SecretKey: secretKey, PayURL: payURL, ReturnURL: returnURL}
}

func (m *Momo) Method() payments.Method { return payments.MethodMomo }

func (m *Momo) BuildPayURL(req PayRequest) (string, error) {
	if req.AmountCents <= 0 {
		return "", fmt.Errorf("invalid amount: %d", req.AmountCents)
	}

	requestID := uuid.NewString()
	orderID := strconv.FormatInt(req.PaymentID, 10)
	amount := strconv.FormatInt(req.AmountCents, 10)
	orderInfo := fmt.Sprintf("Thanh toan don hang: %d", req.OrderID)

	raw := fmt.Sprintf(
		"accessKey=%s&amount=%s&extraData=%s&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=%s",
		m.AccessKey, amount, "", m.ReturnURL, orderID, orderInfo, m.PartnerCode, m.ReturnURL, requestID, momoRequestType,
	)
	sig := hmacSHA256(m.SecretKey, raw)

	q := url.Values{}
	q.Set("partnerCode", m.PartnerCode)
	q.Set("accessKey", m.AccessKey)
	q.Set("requestId", requestID)
	q.Set("orderId", orderID)
	q.Set("orderInfo", orderInfo)
	q.Set("amount", amount)
	q.Set("redirectUrl", m.ReturnURL)
	q.Set("ipnUrl", m.ReturnURL)
	q.Set("requestType", momoRequestType)
	q.Set("extraData", "")
	q.Set("signature", sig)

	return m.PayURL + "?" + q.Encode(), nil
}

// Urutan field payload IPN per kontrak provider; signature dihitung
// ulang dari urutan yang sama untuk verifikasi.
var momoIPNFields = []string{
	"amount", "extraData", "message", "orderId", "orderInfo", "orderType",
	"partnerCode", "payType", "requestId", "responseTime", "resultCode", "transId",
}

func (m *Momo) VerifyCallback(params map[string]string) error {
	given := params["signature"]
	if given == "" {
		return ErrInvalidSignature
	}

	parts := make([]string, 0, len(momoIPNFields)+1)
	parts = append(parts, "accessKey="+m.AccessKey)
	for _, f := range momoIPNFields {
		parts = append(parts, f+"="+params[f])
	}

	calc := hmacSHA256(m.SecretKey, strings.Join(parts, "&"))
	if !hmac.Equal([]byte(calc), []byte(strings.ToLower(given))) {
		return ErrInvalidSignature
	}
	return nil
}

func (m *Momo) ParseOutcome(params map[string]string) Outcome {
	code := params["resultCode"]
	return Outcome{
		TxnRef:        params["orderId"],
		ExternalTxnID: params["transId"],
		Code:          code,
		Success:       code == MomoCodeSuccess,
	}
}

func hmacSHA256(secret, data string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
