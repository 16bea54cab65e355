package pricing

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mesafacil/mesafacil-api/models"
	"github.com/mesafacil/mesafacil-api/utils"
)

func menuFixture() map[uint]models.MenuItem {
	return map[uint]models.MenuItem{
		1: {ID: 1, Name: "Frango Grelhado", Price: 500, Available: true, ETA: 20},
		2: {ID: 2, Name: "Refresco", Price: 250, Available: true, ETA: 5},
		3: {ID: 3, Name: "Camarão Tigre", Price: 1200, Available: false, ETA: 30},
	}
}

func percentCoupon(value float64, maxDiscount *float64, minOrder float64) *models.Coupon {
	return &models.Coupon{
		Code:              "PROMO",
		Type:              models.CouponPercentage,
		Value:             value,
		MaxDiscountAmount: maxDiscount,
		MinOrderAmount:    minOrder,
		Active:            true,
		ValidFrom:         time.Now().Add(-time.Hour),
		ValidTo:           time.Now().Add(time.Hour),
	}
}

func TestPriceBasicBreakdown(t *testing.T) {
	// subtotal 1000, taxRate 5, serviceChargeRate 10 => tax 50, service 100, total 1150
	lines := []CartLine{
		{MenuItemID: 1, Quantity: 1},
		{MenuItemID: 2, Quantity: 2},
	}

	bd, err := Price(lines, menuFixture(), Options{TaxRate: 5, ServiceChargeRate: 10})
	assert.NoError(t, err)
	assert.Equal(t, 1000.0, bd.Subtotal)
	assert.Equal(t, 50.0, bd.Tax)
	assert.Equal(t, 100.0, bd.ServiceCharge)
	assert.Equal(t, 0.0, bd.Discount)
	assert.Equal(t, 1150.0, bd.Total)
	assert.Len(t, bd.Lines, 2)
}

func TestPriceCustomizationSurcharge(t *testing.T) {
	lines := []CartLine{
		{
			MenuItemID: 2,
			Quantity:   2,
			Customizations: models.Customizations{
				{OptionName: "Size", SelectedValue: "Large", PriceModifier: 50},
			},
		},
	}

	bd, err := Price(lines, menuFixture(), Options{})
	assert.NoError(t, err)
	// (250 + 50) * 2
	assert.Equal(t, 600.0, bd.Subtotal)
	assert.Equal(t, 600.0, bd.Lines[0].Subtotal)
	assert.Equal(t, 250.0, bd.Lines[0].UnitPrice)
}

func TestPriceTotalIdentity(t *testing.T) {
	max := 300.0
	bd, err := Price(
		[]CartLine{{MenuItemID: 1, Quantity: 4}},
		menuFixture(),
		Options{TaxRate: 7.5, ServiceChargeRate: 12.5, Coupon: percentCoupon(20, &max, 0)},
	)
	assert.NoError(t, err)
	assert.InDelta(t, bd.Subtotal+bd.Tax+bd.ServiceCharge+bd.DeliveryFee-bd.Discount, bd.Total, 0.001)
}

func TestPriceUnknownItemFailsWholeCart(t *testing.T) {
	lines := []CartLine{
		{MenuItemID: 1, Quantity: 1},
		{MenuItemID: 99, Quantity: 1},
	}

	_, err := Price(lines, menuFixture(), Options{})
	assert.Error(t, err)
	appErr, ok := err.(*utils.AppError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestPriceUnavailableItemFailsWholeCart(t *testing.T) {
	lines := []CartLine{
		{MenuItemID: 1, Quantity: 1},
		{MenuItemID: 3, Quantity: 1},
	}

	_, err := Price(lines, menuFixture(), Options{})
	assert.Error(t, err)
	appErr, ok := err.(*utils.AppError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "item_unavailable", appErr.Code)
}

func TestCouponPercentageCap(t *testing.T) {
	// 20% of 2000 = 400, capped at 300.
	max := 300.0
	bd, err := Price(
		[]CartLine{{MenuItemID: 1, Quantity: 4}}, // 2000
		menuFixture(),
		Options{Coupon: percentCoupon(20, &max, 0)},
	)
	assert.NoError(t, err)
	assert.Equal(t, 300.0, bd.Discount)
	assert.True(t, bd.CouponApplied)
	assert.Equal(t, 1700.0, bd.Total)
}

func TestCouponMinOrderAmount(t *testing.T) {
	// subtotal 100 < minOrderAmount 150 => no discount
	bd, err := Price(
		[]CartLine{{MenuItemID: 2, Quantity: 1}},
		map[uint]models.MenuItem{2: {ID: 2, Name: "Refresco", Price: 100, Available: true}},
		Options{Coupon: percentCoupon(20, nil, 150)},
	)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, bd.Discount)
	assert.False(t, bd.CouponApplied)
}

func TestCouponFixedValue(t *testing.T) {
	coupon := &models.Coupon{
		Code:   "FLAT100",
		Type:   models.CouponFixed,
		Value:  100,
		Active: true,
	}

	bd, err := Price([]CartLine{{MenuItemID: 1, Quantity: 1}}, menuFixture(), Options{Coupon: coupon})
	assert.NoError(t, err)
	assert.Equal(t, 100.0, bd.Discount)
	assert.Equal(t, 400.0, bd.Total)
}

func TestPriceEmptyCart(t *testing.T) {
	_, err := Price(nil, menuFixture(), Options{})
	assert.Error(t, err)
}

func TestPriceZeroQuantityDefaultsToOne(t *testing.T) {
	bd, err := Price([]CartLine{{MenuItemID: 2}}, menuFixture(), Options{})
	assert.NoError(t, err)
	assert.Equal(t, 1, bd.Lines[0].Quantity)
	assert.Equal(t, 250.0, bd.Subtotal)
}

func TestMaxETA(t *testing.T) {
	assert.Equal(t, 20, MaxETA([]PricedLine{{ETA: 5}, {ETA: 20}, {ETA: 10}}))
	assert.Equal(t, 15, MaxETA([]PricedLine{{}, {}}))
}
