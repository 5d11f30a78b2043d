package wire

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-pos/internal/domain/coupon"
	"github.com/xenking/kart-pos/internal/domain/customer"
	"github.com/xenking/kart-pos/internal/domain/order"
	"github.com/xenking/kart-pos/internal/domain/session"
)

func TestDecodeProducts(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bare array", body: `[{"id":1,"name":"Coffee","price":3.50,"category":"drinks","stock":10,"sku":"C-1","barcode":null}]`},
		{name: "named envelope", body: `{"products":[{"id":"1","name":"Coffee","price":"3.50","category":"drinks","stock":10,"sku":"C-1"}],"total":1}`},
		{name: "data envelope", body: `{"data":[{"id":1,"name":"Coffee","price":3.5,"category":"drinks","stock":10,"sku":"C-1","extra":{"a":[1]}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeProducts([]byte(tt.body))
			require.NoError(t, err)
			require.Len(t, got, 1)

			p := got[0]
			assert.Equal(t, int64(1), p.ID)
			assert.Equal(t, "Coffee", p.Name)
			assert.True(t, decimal.RequireFromString("3.50").Equal(p.Price), "price %s", p.Price)
			assert.Equal(t, "drinks", p.Category)
			assert.Equal(t, 10, p.Stock)
			assert.Equal(t, "C-1", p.SKU)
			assert.Empty(t, p.Barcode)
		})
	}
}

func TestDecodeProducts_Invalid(t *testing.T) {
	_, err := DecodeProducts([]byte(`"nope"`))
	require.Error(t, err)

	_, err = DecodeProducts([]byte(`{"total":0}`))
	require.Error(t, err)
}

func TestDecodeCoupons(t *testing.T) {
	body := `[
		{"id":1,"code":"WELCOME10","type":"percent","value":0.10,"min_purchase":null,"expiry_date":"2027-01-31","is_active":true},
		{"id":2,"code":"FIVEOFF","type":"fixed","value":"5.00","is_active":false}
	]`
	got, err := DecodeCoupons([]byte(body))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, coupon.KindPercentage, got[0].Kind)
	assert.True(t, decimal.RequireFromString("0.1").Equal(got[0].Value))
	require.NotNil(t, got[0].ExpiryDate)
	assert.Equal(t, time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC), *got[0].ExpiryDate)
	assert.True(t, got[0].Active)

	assert.Equal(t, coupon.KindFixed, got[1].Kind)
	assert.False(t, got[1].Active)
	assert.Nil(t, got[1].ExpiryDate)
}

func TestDecodeSession(t *testing.T) {
	body := `{"id":7,"register_id":"front","status":"OPEN","opening_cash":"0.00","closing_cash":null,"opened_at":"2026-03-01T09:00:00"}`
	s, err := DecodeSession([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, int64(7), s.ID)
	assert.Equal(t, session.StatusOpen, s.Status)
	assert.True(t, s.IsOpen())
	assert.Nil(t, s.ClosingCash)
	assert.Equal(t, 9, s.OpenedAt.Hour())
}

func TestDraftRoundTrip(t *testing.T) {
	cid := int64(3)
	in := order.Draft{
		SessionID:   9,
		CustomerID:  &cid,
		TotalAmount: decimal.RequireFromString("27.5"),
		Status:      order.StatusCompleted,
		Items: []order.DraftItem{
			{ProductID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("12.5")},
		},
		Payments: []order.Payment{{Method: order.PaymentCash, Amount: decimal.RequireFromString("27.5")}},
	}

	body := EncodeDraft(in)
	assert.Contains(t, string(body), `"total_amount":27.50`)
	assert.Contains(t, string(body), `"method":"CASH"`)

	out, err := DecodeDraft(body)
	require.NoError(t, err)
	assert.Equal(t, in.SessionID, out.SessionID)
	require.NotNil(t, out.CustomerID)
	assert.Equal(t, cid, *out.CustomerID)
	assert.True(t, in.TotalAmount.Equal(out.TotalAmount))
	require.Len(t, out.Items, 1)
	assert.Equal(t, 2, out.Items[0].Quantity)
	require.Len(t, out.Payments, 1)
	assert.Equal(t, order.PaymentCash, out.Payments[0].Method)
}

func TestDecodeDraft_NullCustomer(t *testing.T) {
	out, err := DecodeDraft([]byte(`{"session_id":1,"customer_id":null,"total_amount":0,"items":[],"payments":[{"method":"card","amount":0}]}`))
	require.NoError(t, err)
	assert.Nil(t, out.CustomerID)
	assert.Equal(t, order.PaymentCard, out.Payments[0].Method, "method is normalized to upper case")
}

func TestDecodeOrder(t *testing.T) {
	body := `{
		"id": 42, "session_id": 9, "total_amount": 27.50, "status": "COMPLETED",
		"created_at": "2026-03-01T10:15:00Z",
		"customer": {"id": 3, "name": "Ada", "email": "ada@example.com", "phone": null, "points": 120},
		"items": [{"product_id": 1, "product_name": "Burger", "quantity": 2, "unit_price": 12.50}],
		"payments": [{"method": "CARD", "amount": 27.50}]
	}`
	o, err := DecodeOrder([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, int64(42), o.ID)
	require.NotNil(t, o.Customer)
	assert.Equal(t, "Ada", o.Customer.Name)
	require.NotNil(t, o.CustomerID, "customer id is taken from the embedded customer")
	assert.Equal(t, int64(3), *o.CustomerID)
	require.Len(t, o.Items, 1)
	assert.True(t, decimal.RequireFromString("25").Equal(o.Items[0].Subtotal), "missing subtotal is derived")
}

func TestEncodeOrder(t *testing.T) {
	o := &order.Order{
		ID:          1,
		SessionID:   2,
		TotalAmount: decimal.RequireFromString("10"),
		Status:      order.StatusCompleted,
		CreatedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Items: []order.Line{
			{ProductID: 5, ProductName: "Tea", Quantity: 1, UnitPrice: decimal.RequireFromString("10"), Subtotal: decimal.RequireFromString("10")},
		},
	}
	got := string(EncodeOrder(o))
	assert.Contains(t, got, `"customer":null`)
	assert.Contains(t, got, `"total_amount":10.00`)
	assert.Contains(t, got, `"created_at":"2026-03-01T10:00:00Z"`)
	assert.Contains(t, got, `"payments":[]`)
}

func TestCustomerRoundTrip(t *testing.T) {
	in := &customer.Customer{ID: 4, Name: "Grace", Email: "grace@example.com", Points: 0}
	out, err := DecodeCustomer(EncodeCustomer(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	nc, err := DecodeNewCustomer(EncodeNewCustomer(customer.NewCustomer{Name: "Linus", Phone: "555"}))
	require.NoError(t, err)
	assert.Equal(t, "Linus", nc.Name)
	assert.Equal(t, "555", nc.Phone)
}

func TestDecodeCashAmount(t *testing.T) {
	got, err := DecodeCashAmount([]byte(`{"opening_cash":"100.25"}`), "opening_cash")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("100.25").Equal(got))

	got, err = DecodeCashAmount(nil, "opening_cash")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = DecodeCashAmount([]byte(`{"closing_cash":true}`), "closing_cash")
	require.Error(t, err)
}

func TestDecodeError(t *testing.T) {
	assert.Equal(t, "boom", DecodeError(EncodeError(500, "boom")))
	assert.Equal(t, "Not Found", DecodeError([]byte(`{"detail":"Not Found"}`)))
	assert.Empty(t, DecodeError([]byte(`<html>`)))
}
