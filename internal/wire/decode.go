// Package wire encodes and decodes the JSON resources exchanged with the
// order service. Amounts are read straight into decimals without passing
// through float64.
package wire

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pos/internal/domain/coupon"
	"github.com/xenking/kart-pos/internal/domain/customer"
	"github.com/xenking/kart-pos/internal/domain/loyalty"
	"github.com/xenking/kart-pos/internal/domain/order"
	"github.com/xenking/kart-pos/internal/domain/product"
	"github.com/xenking/kart-pos/internal/domain/session"
)

// Keys that may wrap a list response instead of a bare array.
var listEnvelopes = map[string]struct{}{
	"items":   {},
	"data":    {},
	"results": {},
}

// DecodeProducts decodes a product list.
func DecodeProducts(data []byte) ([]product.Product, error) {
	var out []product.Product
	err := decodeList(data, "products", func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return out, nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = decodeID(d)
		case "name":
			p.Name, err = decodeOptStr(d)
		case "price":
			p.Price, err = decodeDecimal(d)
		case "category":
			p.Category, err = decodeOptStr(d)
		case "stock":
			var n int64
			n, err = decodeID(d)
			p.Stock = int(n)
		case "sku":
			p.SKU, err = decodeOptStr(d)
		case "barcode":
			p.Barcode, err = decodeOptStr(d)
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
	return p, err
}

// DecodeCoupons decodes a coupon list.
func DecodeCoupons(data []byte) ([]coupon.Coupon, error) {
	var out []coupon.Coupon
	err := decodeList(data, "coupons", func(d *jx.Decoder) error {
		c, err := decodeCoupon(d)
		if err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode coupons")
	}
	return out, nil
}

func decodeCoupon(d *jx.Decoder) (coupon.Coupon, error) {
	c := coupon.Coupon{Active: true, MinPurchase: decimal.Zero}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			c.ID, err = decodeID(d)
		case "code":
			c.Code, err = decodeOptStr(d)
		case "type", "discount_type":
			var s string
			s, err = decodeOptStr(d)
			c.Kind = parseKind(s)
		case "value", "discount":
			c.Value, err = decodeDecimal(d)
		case "min_purchase":
			c.MinPurchase, err = decodeDecimal(d)
		case "expiry_date":
			c.ExpiryDate, err = decodeOptTime(d)
		case "is_active":
			c.Active, err = d.Bool()
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
	return c, err
}

// parseKind accepts "percent" as an alias some directories use.
func parseKind(s string) coupon.Kind {
	switch strings.ToLower(s) {
	case "percentage", "percent":
		return coupon.KindPercentage
	case "fixed":
		return coupon.KindFixed
	default:
		return coupon.Kind(s)
	}
}

// DecodeCustomers decodes a customer list.
func DecodeCustomers(data []byte) ([]customer.Customer, error) {
	var out []customer.Customer
	err := decodeList(data, "customers", func(d *jx.Decoder) error {
		c, err := decodeCustomer(d)
		if err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode customers")
	}
	return out, nil
}

// DecodeCustomer decodes a single customer.
func DecodeCustomer(data []byte) (*customer.Customer, error) {
	c, err := decodeCustomer(jx.DecodeBytes(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode customer")
	}
	return &c, nil
}

func decodeCustomer(d *jx.Decoder) (customer.Customer, error) {
	var c customer.Customer
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			c.ID, err = decodeID(d)
		case "name":
			c.Name, err = decodeOptStr(d)
		case "email":
			c.Email, err = decodeOptStr(d)
		case "phone":
			c.Phone, err = decodeOptStr(d)
		case "points":
			c.Points, err = decodeID(d)
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
	return c, err
}

// DecodeNewCustomer decodes a customer registration request.
func DecodeNewCustomer(data []byte) (customer.NewCustomer, error) {
	var c customer.NewCustomer
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			c.Name, err = decodeOptStr(d)
		case "email":
			c.Email, err = decodeOptStr(d)
		case "phone":
			c.Phone, err = decodeOptStr(d)
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
	if err != nil {
		return c, errors.Wrap(err, "decode new customer")
	}
	return c, nil
}

// DecodeLoyaltySettings decodes the loyalty settings singleton.
func DecodeLoyaltySettings(data []byte) (loyalty.Settings, error) {
	s := loyalty.Settings{PointsPerDollar: decimal.Zero, RedemptionRate: decimal.Zero}
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "points_per_dollar":
			s.PointsPerDollar, err = decodeDecimal(d)
		case "redemption_rate":
			s.RedemptionRate, err = decodeDecimal(d)
		case "is_enabled":
			s.Enabled, err = d.Bool()
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
	if err != nil {
		return s, errors.Wrap(err, "decode loyalty settings")
	}
	return s, nil
}

// DecodeSession decodes a register session.
func DecodeSession(data []byte) (*session.Session, error) {
	var s session.Session
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			s.ID, err = decodeID(d)
		case "register_id":
			s.RegisterID, err = decodeOptStr(d)
		case "status":
			var v string
			v, err = decodeOptStr(d)
			s.Status = session.Status(strings.ToLower(v))
		case "opening_cash":
			s.OpeningCash, err = decodeDecimal(d)
		case "closing_cash":
			s.ClosingCash, err = decodeOptDecimal(d)
		case "opened_at":
			var t *time.Time
			t, err = decodeOptTime(d)
			if t != nil {
				s.OpenedAt = *t
			}
		case "closed_at":
			s.ClosedAt, err = decodeOptTime(d)
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode session")
	}
	if s.Status == "" {
		s.Status = session.StatusOpen
	}
	return &s, nil
}

// DecodeCashAmount decodes {"<field>": amount} bodies such as opening_cash
// and closing_cash. A missing field yields zero.
func DecodeCashAmount(data []byte, field string) (decimal.Decimal, error) {
	amount := decimal.Zero
	if len(strings.TrimSpace(string(data))) == 0 {
		return amount, nil
	}
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != field {
			return d.Skip()
		}
		var err error
		amount, err = decodeDecimal(d)
		return fieldErr(err, key)
	})
	if err != nil {
		return amount, errors.Wrapf(err, "decode %s", field)
	}
	return amount, nil
}

// DecodeDraft decodes an order creation request.
func DecodeDraft(data []byte) (order.Draft, error) {
	var o order.Draft
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "session_id":
			o.SessionID, err = decodeID(d)
		case "customer_id":
			o.CustomerID, err = decodeOptID(d)
		case "total_amount":
			o.TotalAmount, err = decodeDecimal(d)
		case "status":
			var s string
			s, err = decodeOptStr(d)
			o.Status = order.Status(strings.ToUpper(s))
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				it, err := decodeDraftItem(d)
				o.Items = append(o.Items, it)
				return err
			})
		case "payments":
			err = d.Arr(func(d *jx.Decoder) error {
				p, err := decodePayment(d)
				o.Payments = append(o.Payments, p)
				return err
			})
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
	if err != nil {
		return o, errors.Wrap(err, "decode order")
	}
	return o, nil
}

func decodeDraftItem(d *jx.Decoder) (order.DraftItem, error) {
	var it order.DraftItem
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product_id":
			it.ProductID, err = decodeID(d)
		case "quantity":
			var n int64
			n, err = decodeID(d)
			it.Quantity = int(n)
		case "unit_price":
			it.UnitPrice, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
	return it, err
}

func decodePayment(d *jx.Decoder) (order.Payment, error) {
	var p order.Payment
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "method":
			var s string
			s, err = decodeOptStr(d)
			p.Method = order.PaymentMethod(strings.ToUpper(s))
		case "amount":
			p.Amount, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
	return p, err
}

// DecodeOrder decodes a full order as returned for receipts.
func DecodeOrder(data []byte) (*order.Order, error) {
	var o order.Order
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = decodeID(d)
		case "session_id":
			o.SessionID, err = decodeID(d)
		case "customer_id":
			o.CustomerID, err = decodeOptID(d)
		case "customer":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var c customer.Customer
			c, err = decodeCustomer(d)
			o.Customer = &c
		case "total_amount":
			o.TotalAmount, err = decodeDecimal(d)
		case "status":
			var s string
			s, err = decodeOptStr(d)
			o.Status = order.Status(strings.ToUpper(s))
		case "created_at":
			var t *time.Time
			t, err = decodeOptTime(d)
			if t != nil {
				o.CreatedAt = *t
			}
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				l, err := decodeLine(d)
				o.Items = append(o.Items, l)
				return err
			})
		case "payments":
			err = d.Arr(func(d *jx.Decoder) error {
				p, err := decodePayment(d)
				o.Payments = append(o.Payments, p)
				return err
			})
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode order")
	}
	if o.Customer != nil && o.CustomerID == nil {
		id := o.Customer.ID
		o.CustomerID = &id
	}
	return &o, nil
}

func decodeLine(d *jx.Decoder) (order.Line, error) {
	var l order.Line
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product_id":
			l.ProductID, err = decodeID(d)
		case "product_name", "name":
			l.ProductName, err = decodeOptStr(d)
		case "quantity":
			var n int64
			n, err = decodeID(d)
			l.Quantity = int(n)
		case "unit_price":
			l.UnitPrice, err = decodeDecimal(d)
		case "subtotal":
			l.Subtotal, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
	if err == nil && l.Subtotal.IsZero() {
		l.Subtotal = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
	}
	return l, err
}

// DecodeError extracts the message of an error body such as
// {"code":404,"message":"..."} or {"detail":"..."}. It returns "" when the
// body carries no recognizable message.
func DecodeError(data []byte) string {
	var msg string
	_ = jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "message", "detail", "error":
			if d.Next() == jx.String {
				s, err := d.Str()
				if err == nil && msg == "" {
					msg = s
				}
				return err
			}
		}
		return d.Skip()
	})
	return msg
}

func fieldErr(err error, key string) error {
	if err != nil {
		return errors.Wrapf(err, "field %q", key)
	}
	return nil
}

func decodeList(data []byte, envelope string, item func(d *jx.Decoder) error) error {
	d := jx.DecodeBytes(data)
	switch tt := d.Next(); tt {
	case jx.Array:
		return d.Arr(item)
	case jx.Object:
		found := false
		err := d.Obj(func(d *jx.Decoder, key string) error {
			_, known := listEnvelopes[key]
			if (key == envelope || known) && !found && d.Next() == jx.Array {
				found = true
				return d.Arr(item)
			}
			return d.Skip()
		})
		if err != nil {
			return err
		}
		if !found {
			return errors.Errorf("no %q list in response", envelope)
		}
		return nil
	default:
		return errors.Errorf("unexpected %s, want array or object", tt)
	}
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch tt := d.Next(); tt {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		if s == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(s)
	case jx.Null:
		return decimal.Zero, d.Null()
	default:
		return decimal.Zero, errors.Errorf("unexpected %s, want amount", tt)
	}
}

func decodeOptDecimal(d *jx.Decoder) (*decimal.Decimal, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := decodeDecimal(d)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// decodeID accepts integers encoded as numbers or numeric strings.
func decodeID(d *jx.Decoder) (int64, error) {
	switch tt := d.Next(); tt {
	case jx.Number:
		return d.Int64()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, err
		}
		return strconv.ParseInt(s, 10, 64)
	case jx.Null:
		return 0, d.Null()
	default:
		return 0, errors.Errorf("unexpected %s, want integer", tt)
	}
}

func decodeOptID(d *jx.Decoder) (*int64, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := decodeID(d)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func decodeOptStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// Accepted timestamp layouts, most specific first. Naive timestamps are UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

func decodeOptTime(d *jx.Decoder) (*time.Time, error) {
	s, err := decodeOptStr(d)
	if err != nil || s == "" {
		return nil, err
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, errors.Errorf("invalid timestamp %q", s)
}
