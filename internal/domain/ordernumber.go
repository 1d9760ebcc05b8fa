package domain

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// OrderNumberPrefix starts every order number.
const OrderNumberPrefix = "ORD"

// OrderNumberGenerator builds order numbers of the form ORDyyMMddNNN, where
// NNN is a zero-padded random suffix. Uniqueness is enforced by storage;
// callers retry with a fresh number on collision.
type OrderNumberGenerator struct {
	now  func() time.Time
	intn func(n int) int
}

// NewOrderNumberGenerator returns a generator. Nil arguments fall back to
// time.Now and math/rand/v2.
func NewOrderNumberGenerator(now func() time.Time, intn func(n int) int) *OrderNumberGenerator {
	if now == nil {
		now = time.Now
	}
	if intn == nil {
		intn = rand.IntN
	}
	return &OrderNumberGenerator{now: now, intn: intn}
}

// Next returns a candidate order number. The date part is the UTC date, the
// same calendar order dates are stored in.
func (g *OrderNumberGenerator) Next() string {
	return fmt.Sprintf("%s%s%03d", OrderNumberPrefix, g.now().UTC().Format("060102"), g.intn(1000))
}
