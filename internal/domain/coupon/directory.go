package coupon

// Directory indexes a loaded set of coupons by code.
type Directory struct {
	byCode map[string]Coupon
}

// NewDirectory builds a Directory from a coupon list. When two coupons share a
// code the later one wins.
func NewDirectory(coupons []Coupon) *Directory {
	byCode := make(map[string]Coupon, len(coupons))
	for _, c := range coupons {
		byCode[c.Code] = c
	}
	return &Directory{byCode: byCode}
}

// Lookup finds a coupon by its exact, case-sensitive code. Inactive coupons
// are still returned; the active flag is informational only.
func (d *Directory) Lookup(code string) (*Coupon, error) {
	c, ok := d.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// Len returns the number of indexed codes.
func (d *Directory) Len() int {
	return len(d.byCode)
}
