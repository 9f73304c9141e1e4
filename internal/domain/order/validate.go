package order

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ogen-go/ogen/ogenregex"
	"github.com/ogen-go/ogen/validate"
	"github.com/shopspring/decimal"
)

// Field names reported by ValidationError.
const (
	FieldName      = "customer_name"
	FieldPhone     = "customer_phone"
	FieldAddress   = "customer_address"
	FieldSurcharge = "surcharge"
	FieldStatus    = "status"
	FieldQuantity  = "quantity"
)

// MaxSurcharge is the exclusive upper bound of a surcharge, matching the
// NUMERIC(14,2) order columns.
var MaxSurcharge = decimal.New(1, 12)

var (
	requiredString = validate.String{MinLength: 1, MinLengthSet: true}
	phoneString    = validate.String{Regex: ogenregex.MustCompile(`^[0-9]{10,11}$`)}
)

// ValidationError carries one message per invalid field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "invalid order: " + strings.Join(parts, "; ")
}

// fieldErrors collects failures the way generated ogen validators do and
// converts them into a ValidationError.
type fieldErrors []validate.FieldError

func (f *fieldErrors) add(name string, err error) {
	if err != nil {
		*f = append(*f, validate.FieldError{Name: name, Error: err})
	}
}

func (f fieldErrors) err(messages map[string]string) error {
	if len(f) == 0 {
		return nil
	}
	ve := &ValidationError{Fields: make(map[string]string, len(f))}
	for _, fe := range f {
		msg, ok := messages[fe.Name]
		if !ok {
			msg = fe.Error.Error()
		}
		ve.Fields[fe.Name] = msg
	}
	return ve
}

var customerMessages = map[string]string{
	FieldName:    "customer name is required",
	FieldAddress: "address is required",
}

// Normalize trims surrounding whitespace from the text fields.
func (c CustomerInfo) Normalize() CustomerInfo {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	c.SurchargeNote = strings.TrimSpace(c.SurchargeNote)
	if c.Surcharge.Sign() == 0 {
		c.Surcharge = decimal.Zero
	}
	return c
}

// Validate checks the customer fields of a normalized CustomerInfo. It
// returns a *ValidationError listing every invalid field.
func (c CustomerInfo) Validate() error {
	var failures fieldErrors
	failures.add(FieldName, requiredString.Validate(c.Name))
	if c.Phone == "" {
		failures.add(FieldPhone, fmt.Errorf("phone number is required"))
	} else if err := phoneString.Validate(c.Phone); err != nil {
		failures.add(FieldPhone, fmt.Errorf("phone number must be 10 or 11 digits"))
	}
	failures.add(FieldAddress, requiredString.Validate(c.Address))
	failures.add(FieldSurcharge, validateSurcharge(c.Surcharge))
	return failures.err(customerMessages)
}

// validateSurcharge rejects out of range values using the exponent and
// coefficient size before any arithmetic, so huge exponents stay cheap.
func validateSurcharge(s decimal.Decimal) error {
	switch {
	case s.IsNegative():
		return fmt.Errorf("surcharge cannot be negative")
	case s.Sign() == 0:
		return nil
	case s.Exponent() > 12 || s.Coefficient().BitLen() > 128:
		return fmt.Errorf("surcharge must be less than %s", MaxSurcharge)
	case s.Exponent() < -40:
		return fmt.Errorf("surcharge must have at most 2 decimal places")
	case s.GreaterThanOrEqual(MaxSurcharge):
		return fmt.Errorf("surcharge must be less than %s", MaxSurcharge)
	case !s.Equal(s.Truncate(2)):
		return fmt.Errorf("surcharge must have at most 2 decimal places")
	}
	return nil
}
