package payment

import (
	"errors"
	"fmt"
	"net/url"
	"testing"

	"smart_basket/internal/domain"
)

func testRequest(amount int64) Request {
	return Request{
		Payee: Payee{
			VPA:      "shop@okbank",
			Name:     "Basket Store",
			Note:     "SmartBasket Payment",
			Currency: "INR",
		},
		Amount: amount,
	}
}

func TestDeepLink_Schemes(t *testing.T) {
	const query = "pa=shop@okbank&pn=Basket%20Store&am=149&tn=SmartBasket%20Payment&cu=INR"

	tests := []struct {
		app  App
		want string
	}{
		{AppUPI, "upi://pay?" + query},
		{AppGPay, "tez://upi/pay?" + query},
		{AppPaytm, "paytmmp://pay?" + query},
		{AppPhonePe, "phonepe://pay?" + query},
		{AppBHIM, "bhim://pay?" + query},
	}

	for _, tt := range tests {
		t.Run(string(tt.app), func(t *testing.T) {
			got, err := DeepLink(tt.app, testRequest(149))
			if err != nil {
				t.Fatalf("DeepLink failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("DeepLink = %q\nwant      %q", got, tt.want)
			}
		})
	}
}

func TestDeepLink_EncodesNameAndNote(t *testing.T) {
	r := testRequest(10)
	r.Payee.Name = "A&B Stores"
	r.Payee.Note = "Bill #12 / table=3"

	link, err := DeepLink(AppUPI, r)
	if err != nil {
		t.Fatalf("DeepLink failed: %v", err)
	}

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("link does not parse: %v", err)
	}
	q := u.Query()
	if q.Get("pn") != "A&B Stores" {
		t.Errorf("pn = %q", q.Get("pn"))
	}
	if q.Get("tn") != "Bill #12 / table=3" {
		t.Errorf("tn = %q", q.Get("tn"))
	}
	if q.Get("am") != "10" || q.Get("cu") != "INR" {
		t.Errorf("am/cu = %q/%q", q.Get("am"), q.Get("cu"))
	}
}

func TestParseApp(t *testing.T) {
	for _, name := range []string{"gpay", "GPay", " paytm ", "PHONEPE", "bhim", "upi"} {
		if _, err := ParseApp(name); err != nil {
			t.Errorf("ParseApp(%q) failed: %v", name, err)
		}
	}

	_, err := ParseApp("venmo")
	if !errors.Is(err, domain.ErrUnknownApp) {
		t.Errorf("Expected ErrUnknownApp, got %v", err)
	}
	if _, err := DeepLink(App("venmo"), testRequest(1)); !errors.Is(err, domain.ErrUnknownApp) {
		t.Errorf("DeepLink with unknown app: expected ErrUnknownApp, got %v", err)
	}
}

func TestQRPayload(t *testing.T) {
	if got := QRPayload(testRequest(5)); got[:10] != "upi://pay?" {
		t.Errorf("QRPayload = %q", got)
	}
}

func TestNewInvoiceID(t *testing.T) {
	for i := 0; i < 200; i++ {
		id := NewInvoiceID()
		var n int
		if _, err := fmt.Sscanf(id, "INV-%d", &n); err != nil {
			t.Fatalf("unexpected invoice format %q: %v", id, err)
		}
		if n < 1000 || n > 9999 {
			t.Fatalf("invoice number out of range: %s", id)
		}
	}
}
