package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/koi-kart/internal/domain/catalog"
)

func TestNewKey(t *testing.T) {
	tests := []struct {
		name      string
		productID int64
		selection catalog.Selection
		want      string
	}{
		{name: "empty selection", productID: 101, selection: nil, want: "101_"},
		{name: "single pair", productID: 101, selection: catalog.Selection{1: 11}, want: "101_1-11"},
		{name: "sorted by group", productID: 7, selection: catalog.Selection{30: 2, 4: 9, 12: 0}, want: "7_4-9_12-0_30-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := NewKey(tt.productID, tt.selection)
			require.NoError(t, err)
			assert.Equal(t, tt.want, k.String())
		})
	}
}

func TestNewKey_Commutative(t *testing.T) {
	a := catalog.Selection{}
	a[1] = 11
	a[2] = 20
	b := catalog.Selection{}
	b[2] = 20
	b[1] = 11

	ka, err := NewKey(101, a)
	require.NoError(t, err)
	kb, err := NewKey(101, b)
	require.NoError(t, err)

	assert.Equal(t, ka, kb)
	assert.Equal(t, ka.String(), kb.String())
}

func TestNewKey_Distinct(t *testing.T) {
	pairs := []struct {
		a, b catalog.Selection
	}{
		{a: catalog.Selection{1: 11}, b: catalog.Selection{1: 10}},
		{a: catalog.Selection{1: 11}, b: catalog.Selection{11: 1}},
		{a: catalog.Selection{1: 11}, b: catalog.Selection{1: 11, 2: 20}},
		{a: catalog.Selection{12: 3}, b: catalog.Selection{1: 23}},
	}
	for _, p := range pairs {
		ka, err := NewKey(5, p.a)
		require.NoError(t, err)
		kb, err := NewKey(5, p.b)
		require.NoError(t, err)
		assert.NotEqual(t, ka, kb)
		assert.NotEqual(t, ka.String(), kb.String())
	}

	k1, _ := NewKey(1, catalog.Selection{2: 3})
	k12, _ := NewKey(12, nil)
	assert.NotEqual(t, k1.String(), k12.String())
}

func TestNewKey_Negative(t *testing.T) {
	_, err := NewKey(-1, nil)
	require.ErrorIs(t, err, ErrInvalidSelection)

	_, err = NewKey(1, catalog.Selection{-2: 3})
	require.ErrorIs(t, err, ErrInvalidSelection)

	_, err = NewKey(1, catalog.Selection{2: -3})
	require.ErrorIs(t, err, ErrInvalidSelection)
}
