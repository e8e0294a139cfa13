package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sondv/phone-orders/internal/payments"
)

const (
	vnpVersion   = "2.1.0"
	vnpCommand   = "pay"
	vnpCurrCode  = "VND"
	vnpOrderType = "billpayment"
	vnpLocale    = "vn"

	// Field hash tidak ikut ditandatangani.
	vnpFieldSecureHash     = "vnp_SecureHash"
	vnpFieldSecureHashType = "vnp_SecureHashType"

	// Format vnp_CreateDate per kontrak gateway.
	vnpDateLayout = "20060102150405"
)

// Response code gateway: "00" berarti transaksi sukses.
const VNPayCodeSuccess = "00"

type VNPay struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
	// Zona waktu untuk vnp_CreateDate; default Asia/Ho_Chi_Minh.
	Location *time.Location
}

func NewVNPay(tmnCode, hashSecret, payURL, returnURL string) *VNPay {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		loc = time.FixedZone("ICT", 7*3600)
	}
	return &VNPay{TmnCode: tmnCode, HashSecret: hashSecret, PayURL: payURL, ReturnURL: returnURL, Location: loc}
}

func (v *VNPay) Method() payments.Method { return payments.MethodVNPay }

// BuildPayURL menyusun parameter kanonik, menandatanganinya, dan
// mengembalikan URL redirect lengkap. Amount pakai aritmetika integer
// minor unit (x100 sesuai kontrak gateway) — tanpa float.
func (v *VNPay) BuildPayURL(req PayRequest) (string, error) {
	if req.AmountCents <= 0 {
		return "", fmt.Errorf("invalid amount: %d", req.AmountCents)
	}
	ip := req.ClientIP
	if ip == "" {
		ip = "127.0.0.1"
	}

	params := map[string]string{
		"vnp_Version":    vnpVersion,
		"vnp_Command":    vnpCommand,
		"vnp_TmnCode":    v.TmnCode,
		"vnp_Amount":     strconv.FormatInt(req.AmountCents*100, 10),
		"vnp_CurrCode":   vnpCurrCode,
		"vnp_TxnRef":     strconv.FormatInt(req.PaymentID, 10),
		"vnp_OrderInfo":  fmt.Sprintf("Thanh toan don hang: %d", req.OrderID),
		"vnp_OrderType":  vnpOrderType,
		"vnp_Locale":     vnpLocale,
		"vnp_ReturnUrl":  v.ReturnURL,
		"vnp_IpAddr":     ip,
		"vnp_CreateDate": req.Now.In(v.Location).Format(vnpDateLayout),
	}

	hash := v.sign(params)

	keys := sortedKeys(params)
	query := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		query = append(query, url.QueryEscape(k)+"="+url.QueryEscape(params[k]))
	}
	query = append(query, vnpFieldSecureHash+"="+hash)

	return v.PayURL + "?" + strings.Join(query, "&"), nil
}

// VerifyCallback membuang field hash, membangun ulang payload kanonik
// yang sama persis dengan signing, lalu membandingkan HMAC secara
// constant-time. Mismatch -> ErrInvalidSignature, state tidak disentuh.
func (v *VNPay) VerifyCallback(params map[string]string) error {
	given := params[vnpFieldSecureHash]
	if given == "" {
		return ErrInvalidSignature
	}

	rest := make(map[string]string, len(params))
	for k, val := range params {
		if k == vnpFieldSecureHash || k == vnpFieldSecureHashType {
			continue
		}
		rest[k] = val
	}

	calc := v.sign(rest)
	if !hmac.Equal([]byte(calc), []byte(strings.ToLower(given))) {
		return ErrInvalidSignature
	}
	return nil
}

func (v *VNPay) ParseOutcome(params map[string]string) Outcome {
	code := params["vnp_ResponseCode"]
	ext := params["vnp_TransactionNo"]
	if ext == "" {
		ext = params["vnp_TxnRef"]
	}
	return Outcome{
		TxnRef:        params["vnp_TxnRef"],
		ExternalTxnID: ext,
		Code:          code,
		Success:       code == VNPayCodeSuccess,
	}
}

// sign: kanonikalisasi tunggal untuk outbound dan inbound — sort nama
// field, skip value kosong, "name=urlencode(value)" digabung '&',
// HMAC-SHA512 hex lowercase.
func (v *VNPay) sign(params map[string]string) string {
	keys := sortedKeys(params)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if params[k] == "" {
			continue
		}
		parts = append(parts, k+"="+url.QueryEscape(params[k]))
	}
	return hmacSHA512(v.HashSecret, strings.Join(parts, "&"))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func hmacSHA512(secret, data string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
