package wire

import (
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pos/internal/domain/coupon"
	"github.com/xenking/kart-pos/internal/domain/customer"
	"github.com/xenking/kart-pos/internal/domain/loyalty"
	"github.com/xenking/kart-pos/internal/domain/order"
	"github.com/xenking/kart-pos/internal/domain/product"
	"github.com/xenking/kart-pos/internal/domain/session"
)

// Money writes a currency amount with two decimal places.
func Money(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

// Decimal writes d without rounding.
func Decimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

// EncodeProducts encodes a bare product array.
func EncodeProducts(products []product.Product) []byte {
	e := &jx.Encoder{}
	e.ArrStart()
	for i := range products {
		WriteProduct(e, &products[i])
	}
	e.ArrEnd()
	return e.Bytes()
}

// WriteProduct writes one product object.
func WriteProduct(e *jx.Encoder, p *product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	Money(e, p.Price)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("sku")
	e.Str(p.SKU)
	e.FieldStart("barcode")
	e.Str(p.Barcode)
	e.ObjEnd()
}

// EncodeCoupons encodes a bare coupon array.
func EncodeCoupons(coupons []coupon.Coupon) []byte {
	e := &jx.Encoder{}
	e.ArrStart()
	for i := range coupons {
		WriteCoupon(e, &coupons[i])
	}
	e.ArrEnd()
	return e.Bytes()
}

// WriteCoupon writes one coupon object. The value keeps its full precision
// since percentage coupons are fractions.
func WriteCoupon(e *jx.Encoder, c *coupon.Coupon) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(c.ID)
	e.FieldStart("code")
	e.Str(c.Code)
	e.FieldStart("type")
	e.Str(string(c.Kind))
	e.FieldStart("value")
	Decimal(e, c.Value)
	e.FieldStart("min_purchase")
	Money(e, c.MinPurchase)
	e.FieldStart("expiry_date")
	if c.ExpiryDate != nil {
		e.Str(c.ExpiryDate.Format(time.DateOnly))
	} else {
		e.Null()
	}
	e.FieldStart("is_active")
	e.Bool(c.Active)
	e.ObjEnd()
}

// EncodeCustomers encodes a bare customer array.
func EncodeCustomers(customers []customer.Customer) []byte {
	e := &jx.Encoder{}
	e.ArrStart()
	for i := range customers {
		WriteCustomer(e, &customers[i])
	}
	e.ArrEnd()
	return e.Bytes()
}

// EncodeCustomer encodes a single customer.
func EncodeCustomer(c *customer.Customer) []byte {
	e := &jx.Encoder{}
	WriteCustomer(e, c)
	return e.Bytes()
}

// WriteCustomer writes one customer object, or null for nil.
func WriteCustomer(e *jx.Encoder, c *customer.Customer) {
	if c == nil {
		e.Null()
		return
	}
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(c.ID)
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("email")
	e.Str(c.Email)
	e.FieldStart("phone")
	e.Str(c.Phone)
	e.FieldStart("points")
	e.Int64(c.Points)
	e.ObjEnd()
}

// EncodeNewCustomer encodes a customer registration request.
func EncodeNewCustomer(c customer.NewCustomer) []byte {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("email")
	e.Str(c.Email)
	e.FieldStart("phone")
	e.Str(c.Phone)
	e.ObjEnd()
	return e.Bytes()
}

// EncodeLoyaltySettings encodes the loyalty settings singleton.
func EncodeLoyaltySettings(s loyalty.Settings) []byte {
	e := &jx.Encoder{}
	WriteLoyaltySettings(e, s)
	return e.Bytes()
}

// WriteLoyaltySettings writes the loyalty settings object.
func WriteLoyaltySettings(e *jx.Encoder, s loyalty.Settings) {
	e.ObjStart()
	e.FieldStart("points_per_dollar")
	Decimal(e, s.PointsPerDollar)
	e.FieldStart("redemption_rate")
	Decimal(e, s.RedemptionRate)
	e.FieldStart("is_enabled")
	e.Bool(s.Enabled)
	e.ObjEnd()
}

// EncodeSession encodes a register session.
func EncodeSession(s *session.Session) []byte {
	e := &jx.Encoder{}
	WriteSession(e, s)
	return e.Bytes()
}

// WriteSession writes one session object.
func WriteSession(e *jx.Encoder, s *session.Session) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(s.ID)
	e.FieldStart("register_id")
	e.Str(s.RegisterID)
	e.FieldStart("status")
	e.Str(string(s.Status))
	e.FieldStart("opening_cash")
	Money(e, s.OpeningCash)
	e.FieldStart("closing_cash")
	if s.ClosingCash != nil {
		Money(e, *s.ClosingCash)
	} else {
		e.Null()
	}
	e.FieldStart("opened_at")
	e.Str(s.OpenedAt.UTC().Format(time.RFC3339))
	e.FieldStart("closed_at")
	if s.ClosedAt != nil {
		e.Str(s.ClosedAt.UTC().Format(time.RFC3339))
	} else {
		e.Null()
	}
	e.ObjEnd()
}

// EncodeCashAmount encodes {"<field>": amount}.
func EncodeCashAmount(field string, amount decimal.Decimal) []byte {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart(field)
	Money(e, amount)
	e.ObjEnd()
	return e.Bytes()
}

// EncodeDraft encodes an order creation request.
func EncodeDraft(d order.Draft) []byte {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("session_id")
	e.Int64(d.SessionID)
	e.FieldStart("customer_id")
	writeOptID(e, d.CustomerID)
	e.FieldStart("total_amount")
	Money(e, d.TotalAmount)
	e.FieldStart("status")
	e.Str(string(d.Status))
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range d.Items {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Int64(it.ProductID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("unit_price")
		Money(e, it.UnitPrice)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("payments")
	writePayments(e, d.Payments)
	e.ObjEnd()
	return e.Bytes()
}

// EncodeOrder encodes a full order.
func EncodeOrder(o *order.Order) []byte {
	e := &jx.Encoder{}
	WriteOrder(e, o)
	return e.Bytes()
}

// WriteOrder writes an order object with its lines, payments and customer.
func WriteOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(o.ID)
	e.FieldStart("session_id")
	e.Int64(o.SessionID)
	e.FieldStart("customer_id")
	writeOptID(e, o.CustomerID)
	e.FieldStart("customer")
	WriteCustomer(e, o.Customer)
	e.FieldStart("total_amount")
	Money(e, o.TotalAmount)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339))
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range o.Items {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Int64(l.ProductID)
		e.FieldStart("product_name")
		e.Str(l.ProductName)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("unit_price")
		Money(e, l.UnitPrice)
		e.FieldStart("subtotal")
		Money(e, l.Subtotal)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("payments")
	writePayments(e, o.Payments)
	e.ObjEnd()
}

// EncodeError encodes the error body shared by both HTTP APIs.
func EncodeError(code int, message string) []byte {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("code")
	e.Int(code)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	return e.Bytes()
}

func writePayments(e *jx.Encoder, payments []order.Payment) {
	e.ArrStart()
	for _, p := range payments {
		e.ObjStart()
		e.FieldStart("method")
		e.Str(string(p.Method))
		e.FieldStart("amount")
		Money(e, p.Amount)
		e.ObjEnd()
	}
	e.ArrEnd()
}

func writeOptID(e *jx.Encoder, id *int64) {
	if id == nil {
		e.Null()
		return
	}
	e.Int64(*id)
}
