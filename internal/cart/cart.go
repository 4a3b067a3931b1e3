// Package cart holds the per-session shopping cart. A Cart is a plain value:
// it is serialized into the session and never treated as authoritative state.
package cart

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Item is the snapshot of a toy taken when it was put in the cart.
type Item struct {
	ToyID     string          `json:"toy_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImagePath string          `json:"image_path"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is price x quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart maps toy ids to snapshots.
type Cart struct {
	Items map[string]Item `json:"items"`
}

// New returns an empty cart.
func New() Cart {
	return Cart{Items: map[string]Item{}}
}

// DefaultImage is shown for toys without an uploaded image.
const DefaultImage = "default_toy.png"

// Clone returns a copy that shares no state with c.
func (c Cart) Clone() Cart {
	out := Cart{Items: make(map[string]Item, len(c.Items))}
	for id, item := range c.Items {
		out.Items[id] = item
	}
	return out
}

// Get returns the line for a toy.
func (c Cart) Get(toyID string) (Item, bool) {
	item, ok := c.Items[toyID]
	return item, ok
}

// Put inserts or replaces a line.
func (c *Cart) Put(item Item) {
	if c.Items == nil {
		c.Items = map[string]Item{}
	}
	c.Items[item.ToyID] = item
}

// Remove deletes a line and reports whether it existed.
func (c *Cart) Remove(toyID string) bool {
	if _, ok := c.Items[toyID]; !ok {
		return false
	}
	delete(c.Items, toyID)
	return true
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Total is recomputed from the snapshots on every call.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ItemCount is the sum of quantities.
func (c Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Lines returns the items ordered by name, then toy id.
func (c Cart) Lines() []Item {
	lines := make([]Item, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, item)
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Name != lines[j].Name {
			return lines[i].Name < lines[j].Name
		}
		return lines[i].ToyID < lines[j].ToyID
	})
	return lines
}

// Digest fingerprints the toy ids, quantities and prices of the cart.
// Two carts with the same lines have the same digest.
func (c Cart) Digest() string {
	keys := make([]string, 0, len(c.Items))
	for id, item := range c.Items {
		keys = append(keys, fmt.Sprintf("%s:%d:%s", id, item.Quantity, item.Price.String()))
	}
	sort.Strings(keys)
	sum := sha256.Sum256([]byte(strings.Join(keys, "|")))
	return hex.EncodeToString(sum[:])
}

// Encode serializes the cart for session storage.
func (c Cart) Encode() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode cart: %w", err)
	}
	return string(b), nil
}

// Decode parses a cart previously produced by Encode. An empty string is an
// empty cart.
func Decode(raw string) (Cart, error) {
	c := New()
	if raw == "" {
		return c, nil
	}
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return New(), fmt.Errorf("failed to decode cart: %w", err)
	}
	if c.Items == nil {
		c.Items = map[string]Item{}
	}
	return c, nil
}
