package cache

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-pos/internal/wire"
)

func encodeReference(ref *Reference) []byte {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("fetched_at")
	e.Str(ref.FetchedAt.UTC().Format(time.RFC3339Nano))
	e.FieldStart("products")
	e.ArrStart()
	for i := range ref.Products {
		wire.WriteProduct(e, &ref.Products[i])
	}
	e.ArrEnd()
	e.FieldStart("coupons")
	e.ArrStart()
	for i := range ref.Coupons {
		wire.WriteCoupon(e, &ref.Coupons[i])
	}
	e.ArrEnd()
	e.FieldStart("customers")
	e.ArrStart()
	for i := range ref.Customers {
		wire.WriteCustomer(e, &ref.Customers[i])
	}
	e.ArrEnd()
	e.FieldStart("loyalty")
	wire.WriteLoyaltySettings(e, ref.Loyalty)
	e.ObjEnd()
	return e.Bytes()
}

func decodeReference(data []byte) (*Reference, error) {
	var ref Reference
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key == "fetched_at" {
			s, err := d.Str()
			if err != nil {
				return err
			}
			ref.FetchedAt, err = time.Parse(time.RFC3339Nano, s)
			return err
		}

		raw, err := d.Raw()
		if err != nil {
			return err
		}
		switch key {
		case "products":
			ref.Products, err = wire.DecodeProducts(raw)
		case "coupons":
			ref.Coupons, err = wire.DecodeCoupons(raw)
		case "customers":
			ref.Customers, err = wire.DecodeCustomers(raw)
		case "loyalty":
			ref.Loyalty, err = wire.DecodeLoyaltySettings(raw)
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode reference snapshot")
	}
	return &ref, nil
}
