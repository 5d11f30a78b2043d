package main

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-pos/internal/domain/coupon"
	"github.com/xenking/kart-pos/internal/domain/customer"
	"github.com/xenking/kart-pos/internal/domain/loyalty"
	"github.com/xenking/kart-pos/internal/domain/product"
	"github.com/xenking/kart-pos/internal/wire"
)

// catalog is the seed document: the reference data a fresh store starts with.
type catalog struct {
	Products  []product.Product
	Coupons   []coupon.Coupon
	Customers []customer.Customer
	Loyalty   *loyalty.Settings
}

// decodeCatalog reads each section with the same decoders the order service
// responses go through.
func decodeCatalog(data []byte) (*catalog, error) {
	var c catalog
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "products" && key != "coupons" && key != "customers" && key != "loyalty" {
			return d.Skip()
		}
		raw, err := d.Raw()
		if err != nil {
			return errors.Wrapf(err, "read %s", key)
		}
		switch key {
		case "products":
			c.Products, err = wire.DecodeProducts(raw)
		case "coupons":
			c.Coupons, err = wire.DecodeCoupons(raw)
		case "customers":
			c.Customers, err = wire.DecodeCustomers(raw)
		case "loyalty":
			var s loyalty.Settings
			s, err = wire.DecodeLoyaltySettings(raw)
			c.Loyalty = &s
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}

	for _, cp := range c.Coupons {
		if !cp.Kind.Valid() {
			return nil, errors.Errorf("coupon %s: unknown type %q", cp.Code, cp.Kind)
		}
	}
	return &c, nil
}
