package handler

import (
	"github.com/go-faster/jx"

	"github.com/xenking/kart-pos/internal/domain/cart"
	"github.com/xenking/kart-pos/internal/domain/checkout"
	"github.com/xenking/kart-pos/internal/domain/pricing"
	"github.com/xenking/kart-pos/internal/wire"
)

func encodeCart(s cart.Snapshot) []byte {
	e := &jx.Encoder{}
	writeCart(e, s)
	return e.Bytes()
}

func writeCart(e *jx.Encoder, s cart.Snapshot) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range s.Items {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Int64(it.ProductID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("unit_price")
		wire.Money(e, it.UnitPrice)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("line_total")
		wire.Money(e, it.LineTotal())
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("customer")
	wire.WriteCustomer(e, s.Customer)

	e.FieldStart("coupon")
	if s.Coupon != nil {
		wire.WriteCoupon(e, s.Coupon)
	} else {
		e.Null()
	}

	e.FieldStart("manual_discount")
	wire.Money(e, s.ManualDiscount)

	e.FieldStart("totals")
	writeTotals(e, s.Totals.Rounded())
	e.ObjEnd()
}

func writeTotals(e *jx.Encoder, t pricing.Totals) {
	e.ObjStart()
	e.FieldStart("subtotal")
	wire.Money(e, t.Subtotal)
	e.FieldStart("tax")
	wire.Money(e, t.Tax)
	e.FieldStart("manual_discount")
	wire.Money(e, t.ManualDiscount)
	e.FieldStart("coupon_discount")
	wire.Money(e, t.CouponDiscount)
	e.FieldStart("loyalty_discount")
	wire.Money(e, t.LoyaltyDiscount)
	e.FieldStart("total_discount")
	wire.Money(e, t.TotalDiscount)
	e.FieldStart("total")
	wire.Money(e, t.Total)
	e.ObjEnd()
}

// encodeCheckout writes the payment state together with the cart it prices.
func encodeCheckout(q checkout.Quote, s cart.Snapshot) []byte {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("state")
	e.Str(string(q.State))
	e.FieldStart("method")
	if q.Method != "" {
		e.Str(string(q.Method))
	} else {
		e.Null()
	}
	e.FieldStart("due")
	wire.Money(e, q.Due)
	e.FieldStart("tendered")
	wire.Money(e, q.Tendered)
	e.FieldStart("change")
	wire.Money(e, q.Change)
	e.FieldStart("remaining")
	wire.Money(e, q.Remaining)
	e.FieldStart("can_submit")
	e.Bool(q.CanSubmit)
	e.FieldStart("last_order_id")
	if q.LastOrder != nil {
		e.Int64(q.LastOrder.ID)
	} else {
		e.Null()
	}
	e.FieldStart("last_error")
	if q.LastError != nil {
		e.Str(q.LastError.Error())
	} else {
		e.Null()
	}
	e.FieldStart("cart")
	writeCart(e, s)
	e.ObjEnd()
	return e.Bytes()
}

func encodeCategories(categories []string) []byte {
	e := &jx.Encoder{}
	e.ArrStart()
	for _, c := range categories {
		e.Str(c)
	}
	e.ArrEnd()
	return e.Bytes()
}
