package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPho() Product {
	return Product{
		ID:    101,
		Name:  "Phở Bò",
		Price: decimal.NewFromInt(75000),
		Customizable: []CustomizationGroup{
			{
				ID:       1,
				Name:     "Size",
				Required: true,
				Options: []CustomizationOption{
					{ID: 10, Name: "Regular", Price: decimal.Zero, IsDefault: true},
					{ID: 11, Name: "Large", Price: decimal.NewFromInt(10000)},
				},
			},
			{
				ID:       2,
				Name:     "Topping",
				CheckBox: true,
				Options: []CustomizationOption{
					{ID: 20, Name: "Egg", Price: decimal.NewFromInt(5000)},
					{ID: 21, Name: "Herbs", Price: decimal.Zero},
				},
			},
		},
	}
}

func TestResolve(t *testing.T) {
	p := newPho()

	got := p.Resolve(Selection{2: 21, 1: 11})
	require.Len(t, got, 2)

	assert.Equal(t, int64(1), got[0].GroupID)
	assert.Equal(t, "Size", got[0].GroupName)
	assert.Equal(t, "Large", got[0].OptionName)
	assert.True(t, decimal.NewFromInt(10000).Equal(got[0].Price))
	assert.False(t, got[0].Unresolved)

	assert.Equal(t, int64(2), got[1].GroupID)
	assert.Equal(t, "Herbs", got[1].OptionName)
	assert.True(t, got[1].Price.IsZero())
	assert.False(t, got[1].Unresolved, "free option must not be reported as unresolved")
}

func TestResolve_Unresolved(t *testing.T) {
	p := newPho()

	tests := []struct {
		name      string
		selection Selection
		groupName string
	}{
		{name: "unknown option keeps group name", selection: Selection{1: 99}, groupName: "Size"},
		{name: "unknown group", selection: Selection{42: 10}, groupName: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Resolve(tt.selection)
			require.Len(t, got, 1)
			assert.True(t, got[0].Unresolved)
			assert.Equal(t, tt.groupName, got[0].GroupName)
			assert.Empty(t, got[0].OptionName)
			assert.True(t, got[0].Price.IsZero())
			assert.Equal(t, 1, CountUnresolved(got))
		})
	}
}

func TestDefaultSelection(t *testing.T) {
	p := newPho()
	assert.Equal(t, Selection{1: 10}, p.DefaultSelection())
}

func TestMissingRequired(t *testing.T) {
	p := newPho()

	require.NoError(t, p.MissingRequired(Selection{1: 11}))

	err := p.MissingRequired(Selection{2: 20})
	var missing *MissingOptionsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, int64(101), missing.ProductID)
	assert.Equal(t, []string{"Size"}, missing.Groups)
}

func TestSelection_GroupIDs(t *testing.T) {
	s := Selection{30: 1, 2: 1, 11: 1}
	assert.Equal(t, []int64{2, 11, 30}, s.GroupIDs())
}

func TestFlatten(t *testing.T) {
	cats := []Category{
		{ID: 1, Products: []Product{{ID: 1}, {ID: 2}}},
		{ID: 2, Products: []Product{{ID: 3}}},
	}
	got := Flatten(cats)
	require.Len(t, got, 3)
	assert.Equal(t, int64(3), got[2].ID)
}
