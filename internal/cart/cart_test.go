package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart_TotalsAndCount(t *testing.T) {
	c := New()
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Total().IsZero())

	c.Put(Item{ToyID: "a", Name: "Robot", Price: decimal.NewFromInt(100), Quantity: 2})
	c.Put(Item{ToyID: "b", Name: "Ball", Price: decimal.NewFromInt(50), Quantity: 1})

	assert.True(t, c.Total().Equal(decimal.NewFromInt(250)))
	assert.Equal(t, 3, c.ItemCount())

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "Ball", lines[0].Name)

	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.Equal(t, 1, c.ItemCount())
}

func TestCart_DigestTracksLines(t *testing.T) {
	a := New()
	a.Put(Item{ToyID: "x", Price: decimal.NewFromInt(5), Quantity: 1})
	a.Put(Item{ToyID: "y", Price: decimal.NewFromInt(7), Quantity: 2})

	b := New()
	b.Put(Item{ToyID: "y", Price: decimal.NewFromInt(7), Quantity: 2})
	b.Put(Item{ToyID: "x", Price: decimal.NewFromInt(5), Quantity: 1})
	assert.Equal(t, a.Digest(), b.Digest())

	b.Put(Item{ToyID: "x", Price: decimal.NewFromInt(5), Quantity: 3})
	assert.NotEqual(t, a.Digest(), b.Digest())
}

func TestCart_EncodeDecode(t *testing.T) {
	c := New()
	c.Put(Item{ToyID: "x", Name: "Kite", Price: decimal.RequireFromString("12.50"), ImagePath: "kite.png", Quantity: 2})

	raw, err := c.Encode()
	require.NoError(t, err)

	back, err := Decode(raw)
	require.NoError(t, err)
	item, ok := back.Get("x")
	require.True(t, ok)
	assert.Equal(t, "Kite", item.Name)
	assert.True(t, item.Price.Equal(decimal.RequireFromString("12.50")))

	empty, err := Decode("")
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	_, err = Decode("{not json")
	assert.Error(t, err)
}

func TestCart_CloneIsIndependent(t *testing.T) {
	c := New()
	c.Put(Item{ToyID: "x", Quantity: 1})

	dup := c.Clone()
	dup.Put(Item{ToyID: "x", Quantity: 5})
	dup.Remove("missing")

	item, _ := c.Get("x")
	assert.Equal(t, 1, item.Quantity)
}
