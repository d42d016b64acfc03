package domain

import "time"

// Change notes appended by cart synchronization when a seller edit touches an
// open cart line. Multiple notes on one line are joined with NoteSeparator.
const (
	NotePriceIncreased = "Price Increased"
	NotePriceDecreased = "Price Decreased"
	NoteStockReduced   = "Stock Reduced"

	NoteSeparator = " | "
)

// LineItem is one product line within an order.
//
// LineSubtotal stores price × quantity at the time the line was last written,
// not the per-unit price. Partial removal must back the per-unit rate out of
// the stored subtotal rather than read the product's live price, because the
// price may have drifted since the line was added.
type LineItem struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	ProductID    string    `json:"product_id"`
	SellerID     string    `json:"seller_id"`
	ProductName  string    `json:"product_name"`
	Quantity     int       `json:"quantity"`
	LineSubtotal int64     `json:"line_subtotal"`
	Rated        bool      `json:"rated"`
	ChangeNote   string    `json:"change_note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UnitRate returns the per-unit price implied by the stored subtotal,
// rounded half-up.
func (li *LineItem) UnitRate() int64 {
	if li.Quantity <= 0 {
		return 0
	}
	return divideHalfUp(li.LineSubtotal, int64(li.Quantity))
}

// Rescale reduces the line to newQuantity, scaling the subtotal
// proportionally so the implied per-unit rate is preserved.
func (li *LineItem) Rescale(newQuantity int) {
	if li.Quantity <= 0 || newQuantity >= li.Quantity {
		return
	}
	li.LineSubtotal = divideHalfUp(li.LineSubtotal*int64(newQuantity), int64(li.Quantity))
	li.Quantity = newQuantity
}

// AppendChangeNote adds a note, joining with the separator when a note is
// already present. Duplicate consecutive notes are not deduplicated; every
// seller edit leaves its own marker.
func (li *LineItem) AppendChangeNote(note string) {
	if li.ChangeNote == "" {
		li.ChangeNote = note
		return
	}
	li.ChangeNote += NoteSeparator + note
}

// divideHalfUp divides a by b rounding half away from zero. Both operands
// are expected non-negative in practice.
func divideHalfUp(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}
