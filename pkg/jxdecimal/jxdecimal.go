// Package jxdecimal reads and writes shopspring decimals with go-faster/jx.
package jxdecimal

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// MaxExponent bounds the absolute decimal exponent Decode accepts.
const MaxExponent = 32

// Encode writes v as a bare JSON number.
func Encode(e *jx.Encoder, v decimal.Decimal) {
	e.Raw([]byte(v.String()))
}

// Decode reads a decimal from a JSON number or a numeric string.
func Decode(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return parse(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return parse(string(n))
	default:
		return decimal.Zero, errors.Errorf("unexpected %s for decimal", d.Next())
	}
}

func parse(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse decimal %q", s)
	}
	if e := v.Exponent(); e > MaxExponent || e < -MaxExponent {
		return decimal.Zero, errors.Errorf("decimal exponent %d out of range", e)
	}
	return v, nil
}
