package domain

import (
	"strings"
	"time"
)

// Cart is the session cart aggregate. Operations never fail; they return the updated cart.
type Cart struct {
	SessionID string     `json:"sessionId"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updatedAt,omitempty"`
}

// ItemKey is the merge key for cart lines: product plus optional variant.
func ItemKey(productID, variantID string) string {
	return strings.TrimSpace(productID) + "::" + strings.TrimSpace(variantID)
}

// Key returns the merge key of the item.
func (i CartItem) Key() string {
	return ItemKey(i.ProductID, i.VariantID)
}

// LineTotal returns price times quantity.
func (i CartItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// AddItem merges item into the cart. An existing line with the same product and
// variant has its quantity increased instead of a duplicate being appended.
// Quantities are clamped to [1, MaxQuantity].
func (c Cart) AddItem(item CartItem) Cart {
	items := c.cloneItems()
	key := item.Key()
	for i := range items {
		if items[i].Key() != key {
			continue
		}
		if item.MaxQuantity > 0 {
			items[i].MaxQuantity = item.MaxQuantity
		}
		items[i].Quantity = clampQuantity(items[i].Quantity+max(item.Quantity, 1), items[i].MaxQuantity)
		if item.Notes != "" {
			items[i].Notes = item.Notes
		}
		c.Items = items
		return c
	}

	item.Quantity = clampQuantity(item.Quantity, item.MaxQuantity)
	c.Items = append(items, item)
	return c
}

// RemoveItem drops the line with the given id. Unknown ids are ignored.
func (c Cart) RemoveItem(id string) Cart {
	items := make([]CartItem, 0, len(c.Items))
	for _, item := range c.Items {
		if item.ID == id {
			continue
		}
		items = append(items, item)
	}
	c.Items = items
	return c
}

// UpdateQuantity sets the quantity of a line. qty <= 0 removes it; qty above
// the line maximum is clamped.
func (c Cart) UpdateQuantity(id string, qty int) Cart {
	if qty <= 0 {
		return c.RemoveItem(id)
	}
	items := c.cloneItems()
	for i := range items {
		if items[i].ID == id {
			items[i].Quantity = clampQuantity(qty, items[i].MaxQuantity)
		}
	}
	c.Items = items
	return c
}

// Clear empties the cart.
func (c Cart) Clear() Cart {
	c.Items = []CartItem{}
	return c
}

// Find returns the line with the given id.
func (c Cart) Find(id string) (CartItem, bool) {
	for _, item := range c.Items {
		if item.ID == id {
			return item, true
		}
	}
	return CartItem{}, false
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount returns the number of units across all lines.
func (c Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// Subtotal is the sum of price times quantity over all lines.
func (c Cart) Subtotal() int64 {
	var subtotal int64
	for _, item := range c.Items {
		subtotal += item.LineTotal()
	}
	return subtotal
}

// Totals derives the cart totals for the given shipping cost. Tax is always zero.
func (c Cart) Totals(shipping int64) CartTotals {
	subtotal := c.Subtotal()
	const tax int64 = 0
	return CartTotals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal + shipping + tax,
	}
}

// Snapshot returns a deep copy safe to hold while the live cart keeps changing.
func (c Cart) Snapshot() Cart {
	c.Items = c.cloneItems()
	return c
}

func (c Cart) cloneItems() []CartItem {
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return items
}

func clampQuantity(qty, maxQty int) int {
	if qty < 1 {
		qty = 1
	}
	if maxQty > 0 && qty > maxQty {
		qty = maxQty
	}
	return qty
}
