package services

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mesafacil/mesafacil-api/models"
	"github.com/mesafacil/mesafacil-api/utils"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}

	err = db.AutoMigrate(
		&models.Restaurant{},
		&models.Subscription{},
		&models.Table{},
		&models.TableSession{},
		&models.TableStatusLog{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusLog{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.WaiterCall{},
		&models.Audience{},
		&models.User{},
		&models.PushSubscription{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	// cache=shared keeps one store per process; start each test clean.
	for _, table := range []string{
		"restaurants", "subscriptions", "tables", "table_sessions", "table_status_logs",
		"menu_items", "orders", "order_items", "order_status_logs", "coupons",
		"coupon_usages", "waiter_calls", "audiences", "users", "push_subscriptions",
	} {
		db.Exec("DELETE FROM " + table)
	}

	return db
}

// seedRestaurant creates a tenant with an active subscription, one free table
// and two available menu items.
func seedRestaurant(t *testing.T, db *gorm.DB) (*models.Restaurant, *models.Table, []models.MenuItem) {
	t.Helper()

	restaurant := models.Restaurant{
		Name:   "Sabores da Baía",
		Email:  "owner@sabores.example",
		Active: true,
		Settings: models.RestaurantSettings{
			TaxRate:           5,
			ServiceChargeRate: 10,
		},
	}
	if err := db.Create(&restaurant).Error; err != nil {
		t.Fatalf("seed restaurant: %v", err)
	}

	sub := models.Subscription{
		RestaurantID:       restaurant.ID,
		Status:             models.SubscriptionActive,
		CurrentPeriodStart: time.Now().Add(-24 * time.Hour),
		CurrentPeriodEnd:   time.Now().Add(30 * 24 * time.Hour),
	}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	restaurant.Subscription = &sub

	table := models.Table{
		RestaurantID: restaurant.ID,
		Number:       4,
		Status:       models.TableStatusFree,
		NumericCode:  "482913",
	}
	if err := db.Create(&table).Error; err != nil {
		t.Fatalf("seed table: %v", err)
	}

	items := []models.MenuItem{
		{RestaurantID: restaurant.ID, Name: "Frango Grelhado", Category: "Pratos", Price: 500, Available: true, ETA: 20},
		{RestaurantID: restaurant.ID, Name: "Refresco", Category: "Bebidas", Price: 250, Available: true, ETA: 5},
	}
	for i := range items {
		if err := db.Create(&items[i]).Error; err != nil {
			t.Fatalf("seed menu item: %v", err)
		}
	}

	return &restaurant, &table, items
}

func uintPtr(v uint) *uint { return &v }
