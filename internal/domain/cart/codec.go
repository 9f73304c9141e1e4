package cart

import (
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/koi-kart/internal/domain/catalog"
	"github.com/xenking/koi-kart/pkg/jxdecimal"
)

// Encode writes the snapshot as a JSON object.
func (s Snapshot) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range s.Lines {
		encodeLine(e, l)
	}
	e.ArrEnd()
	e.FieldStart("totalLines")
	e.Int(s.Totals.Lines)
	e.FieldStart("totalItems")
	e.Int(s.Totals.Items)
	e.FieldStart("totalPrice")
	jxdecimal.Encode(e, s.Totals.Price)
	e.ObjEnd()
}

// MarshalJSON implements json.Marshaler.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	s.Encode(e)
	return append([]byte(nil), e.Bytes()...), nil
}

// DecodeLines reads the "items" of an encoded snapshot. Totals are ignored;
// Restore recomputes them.
func DecodeLines(data []byte) ([]Line, error) {
	var lines []Line
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "items" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			l, err := decodeLine(d)
			if err != nil {
				return err
			}
			lines = append(lines, l)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return lines, nil
}

func encodeLine(e *jx.Encoder, l Line) {
	e.ObjStart()
	e.FieldStart("key")
	e.Str(l.Key)
	e.FieldStart("productId")
	e.Int64(l.Product.ID)
	e.FieldStart("productName")
	e.Str(l.Product.Name)
	e.FieldStart("basePrice")
	jxdecimal.Encode(e, l.Product.Price)
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("selection")
	EncodeSelection(e, l.Selection)
	e.FieldStart("options")
	e.ArrStart()
	for _, o := range l.Options {
		e.ObjStart()
		e.FieldStart("groupId")
		e.Int64(o.GroupID)
		e.FieldStart("groupName")
		e.Str(o.GroupName)
		e.FieldStart("optionId")
		e.Int64(o.OptionID)
		e.FieldStart("optionName")
		e.Str(o.OptionName)
		e.FieldStart("price")
		jxdecimal.Encode(e, o.Price)
		e.FieldStart("unresolved")
		e.Bool(o.Unresolved)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("unitPrice")
	jxdecimal.Encode(e, l.UnitPrice)
	e.FieldStart("totalPrice")
	jxdecimal.Encode(e, l.Total)
	e.ObjEnd()
}

func decodeLine(d *jx.Decoder) (Line, error) {
	var l Line
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "key":
			l.Key, err = d.Str()
		case "productId":
			l.Product.ID, err = d.Int64()
		case "productName":
			l.Product.Name, err = d.Str()
		case "basePrice":
			l.Product.Price, err = jxdecimal.Decode(d)
		case "quantity":
			l.Quantity, err = d.Int()
		case "selection":
			l.Selection, err = DecodeSelection(d)
		case "options":
			err = d.Arr(func(d *jx.Decoder) error {
				o, err := decodeOption(d)
				if err != nil {
					return err
				}
				l.Options = append(l.Options, o)
				return nil
			})
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	return l, err
}

func decodeOption(d *jx.Decoder) (catalog.ResolvedOption, error) {
	var o catalog.ResolvedOption
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "groupId":
			o.GroupID, err = d.Int64()
		case "groupName":
			o.GroupName, err = d.Str()
		case "optionId":
			o.OptionID, err = d.Int64()
		case "optionName":
			o.OptionName, err = d.Str()
		case "price":
			o.Price, err = jxdecimal.Decode(d)
		case "unresolved":
			o.Unresolved, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	return o, err
}

// EncodeSelection writes a selection as {"groupId": optionId, ...} in
// ascending group order.
func EncodeSelection(e *jx.Encoder, s catalog.Selection) {
	e.ObjStart()
	for _, groupID := range s.GroupIDs() {
		e.FieldStart(strconv.FormatInt(groupID, 10))
		e.Int64(s[groupID])
	}
	e.ObjEnd()
}

// DecodeSelection reads a selection object. A repeated group keeps the last
// option.
func DecodeSelection(d *jx.Decoder) (catalog.Selection, error) {
	s := make(catalog.Selection)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		groupID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "group id %q", key)
		}
		optionID, err := d.Int64()
		if err != nil {
			return errors.Wrapf(err, "option for group %d", groupID)
		}
		s[groupID] = optionID
		return nil
	})
	return s, err
}
