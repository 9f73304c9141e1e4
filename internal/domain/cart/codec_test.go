package cart

import (
	"testing"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/koi-kart/internal/domain/catalog"
)

func TestSnapshot_Encode(t *testing.T) {
	c := New()
	_, err := c.Add(newPho(), 3, catalog.Selection{1: 11})
	require.NoError(t, err)

	data, err := c.Snapshot().MarshalJSON()
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"items": [{
			"key": "101_1-11",
			"productId": 101,
			"productName": "Phở Bò",
			"basePrice": 75000,
			"quantity": 3,
			"selection": {"1": 11},
			"options": [{
				"groupId": 1,
				"groupName": "Size",
				"optionId": 11,
				"optionName": "Large",
				"price": 10000,
				"unresolved": false
			}],
			"unitPrice": 85000,
			"totalPrice": 255000
		}],
		"totalLines": 1,
		"totalItems": 3,
		"totalPrice": 255000
	}`, string(data))
}

func TestDecodeLines(t *testing.T) {
	c := New()
	_, err := c.Add(newPho(), 2, catalog.Selection{1: 11, 2: 20})
	require.NoError(t, err)
	_, err = c.Add(newTea(), 1, nil)
	require.NoError(t, err)

	data, err := c.Snapshot().MarshalJSON()
	require.NoError(t, err)

	lines, err := DecodeLines(data)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	restored := Restore(lines)
	assert.Equal(t, c.Totals().Items, restored.Totals().Items)
	assert.True(t, c.Totals().Price.Equal(restored.Totals().Price))
	assert.Equal(t, catalog.Selection{1: 11, 2: 20}, lines[0].Selection)
	assert.Equal(t, "202_", lines[1].Key)
}

func TestDecodeLines_Invalid(t *testing.T) {
	for _, input := range []string{
		`[]`,
		`{"items": [{"quantity": "two"}]}`,
		`{"items": [{"selection": {"x": 1}}]}`,
		`{"items": [{"basePrice": true}]}`,
	} {
		_, err := DecodeLines([]byte(input))
		assert.Error(t, err, input)
	}
}

func TestDecodeSelection_StringPrice(t *testing.T) {
	lines, err := DecodeLines([]byte(`{"items": [{"key": "7_", "productId": 7, "basePrice": "12.50", "quantity": 2}]}`))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, decimal.RequireFromString("12.5").Equal(lines[0].Product.Price))
}

func TestEncodeSelection(t *testing.T) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	EncodeSelection(e, catalog.Selection{12: 3, 2: 40})
	assert.Equal(t, `{"2":40,"12":3}`, e.String())

	sel, err := DecodeSelection(jx.DecodeBytes(e.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, catalog.Selection{12: 3, 2: 40}, sel)
}
