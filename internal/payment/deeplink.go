package payment

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"smart_basket/internal/domain"
)

// App is a mobile payment application reachable by deep link.
type App string

const (
	AppUPI     App = "upi"
	AppGPay    App = "gpay"
	AppPaytm   App = "paytm"
	AppPhonePe App = "phonepe"
	AppBHIM    App = "bhim"
)

// schemes maps each app to its URI prefix; all share the same query.
var schemes = map[App]string{
	AppUPI:     "upi://pay",
	AppGPay:    "tez://upi/pay",
	AppPaytm:   "paytmmp://pay",
	AppPhonePe: "phonepe://pay",
	AppBHIM:    "bhim://pay",
}

// Apps lists the supported apps in menu order.
func Apps() []App {
	return []App{AppGPay, AppPaytm, AppPhonePe, AppBHIM, AppUPI}
}

// ParseApp resolves a case-insensitive app name.
func ParseApp(name string) (App, error) {
	app := App(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := schemes[app]; !ok {
		return "", &domain.ValidationError{Field: "app", Err: fmt.Errorf("%w: %q", domain.ErrUnknownApp, name)}
	}
	return app, nil
}

// Payee is the static receiving side of every payment.
type Payee struct {
	VPA      string // pa
	Name     string // pn
	Note     string // tn
	Currency string // cu
}

// Request is one checkout: the payee plus the floored integer amount.
type Request struct {
	Payee  Payee
	Amount int64
}

// Query renders pa, pn, am, tn, cu. Name and note are percent-encoded with
// spaces as %20; the address is passed as is.
func (r Request) Query() string {
	var b strings.Builder
	b.WriteString("pa=")
	b.WriteString(r.Payee.VPA)
	b.WriteString("&pn=")
	b.WriteString(encodeComponent(r.Payee.Name))
	b.WriteString("&am=")
	b.WriteString(strconv.FormatInt(r.Amount, 10))
	b.WriteString("&tn=")
	b.WriteString(encodeComponent(r.Payee.Note))
	b.WriteString("&cu=")
	b.WriteString(r.Payee.Currency)
	return b.String()
}

// DeepLink builds the URI that opens app pre-filled with the request.
func DeepLink(app App, r Request) (string, error) {
	prefix, ok := schemes[app]
	if !ok {
		return "", &domain.ValidationError{Field: "app", Err: fmt.Errorf("%w: %q", domain.ErrUnknownApp, app)}
	}
	return prefix + "?" + r.Query(), nil
}

// QRPayload is the generic upi:// link shown as the checkout QR code.
func QRPayload(r Request) string {
	link, _ := DeepLink(AppUPI, r)
	return link
}

func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
