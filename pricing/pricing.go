// Package pricing computes order totals from a cart and restaurant settings.
// It is a pure function of its inputs so totals are auditable and testable in
// isolation; nothing here touches the database.
package pricing

import (
	"fmt"
	"math"
	"net/http"

	"github.com/mesafacil/mesafacil-api/models"
	"github.com/mesafacil/mesafacil-api/utils"
)

// CartLine is one requested line before price resolution.
type CartLine struct {
	MenuItemID     uint                  `json:"item"`
	Quantity       int                   `json:"quantity"`
	Customizations models.Customizations `json:"customizations"`
	Notes          string                `json:"notes"`
}

// PricedLine is the snapshot persisted on the order.
type PricedLine struct {
	MenuItemID     uint
	Name           string
	Quantity       int
	UnitPrice      float64
	Customizations models.Customizations
	Subtotal       float64
	ETA            int
}

type Options struct {
	TaxRate           float64 // percentage
	ServiceChargeRate float64 // percentage
	DeliveryFee       float64
	Coupon            *models.Coupon // already eligibility-checked, may be nil
}

type Breakdown struct {
	Lines         []PricedLine
	Subtotal      float64
	Tax           float64
	ServiceCharge float64
	DeliveryFee   float64
	Discount      float64
	Total         float64
	CouponApplied bool
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Price resolves every cart line against the menu and computes the full
// monetary breakdown. Any unknown or unavailable item fails the whole cart;
// there are no partial orders.
func Price(lines []CartLine, menu map[uint]models.MenuItem, opts Options) (Breakdown, error) {
	var bd Breakdown

	if len(lines) == 0 {
		return bd, utils.NewAppError(http.StatusBadRequest, "empty_cart", "Order must contain at least one item")
	}

	for _, line := range lines {
		item, ok := menu[line.MenuItemID]
		if !ok {
			return Breakdown{}, utils.NewAppError(http.StatusNotFound, "item_not_found",
				fmt.Sprintf("Item not found: %d", line.MenuItemID))
		}
		if !item.Available {
			return Breakdown{}, utils.NewAppError(http.StatusBadRequest, "item_unavailable",
				fmt.Sprintf("%s is currently unavailable", item.Name))
		}

		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}

		subtotal := item.Price * float64(qty)
		for _, cz := range line.Customizations {
			subtotal += cz.PriceModifier * float64(qty)
		}
		subtotal = round2(subtotal)

		bd.Lines = append(bd.Lines, PricedLine{
			MenuItemID:     item.ID,
			Name:           item.Name,
			Quantity:       qty,
			UnitPrice:      item.Price,
			Customizations: line.Customizations,
			Subtotal:       subtotal,
			ETA:            item.ETA,
		})
		bd.Subtotal += subtotal
	}

	bd.Subtotal = round2(bd.Subtotal)
	bd.Tax = round2(bd.Subtotal * opts.TaxRate / 100)
	bd.ServiceCharge = round2(bd.Subtotal * opts.ServiceChargeRate / 100)
	bd.DeliveryFee = opts.DeliveryFee

	if opts.Coupon != nil {
		bd.Discount = opts.Coupon.Discount(bd.Subtotal)
		bd.CouponApplied = bd.Discount > 0
	}

	bd.Total = round2(bd.Subtotal + bd.Tax + bd.ServiceCharge + bd.DeliveryFee - bd.Discount)
	return bd, nil
}

// MaxETA returns the longest preparation time across the priced lines,
// falling back to 15 minutes when no line carries one.
func MaxETA(lines []PricedLine) int {
	eta := 0
	for _, line := range lines {
		if line.ETA > eta {
			eta = line.ETA
		}
	}
	if eta == 0 {
		eta = 15
	}
	return eta
}
