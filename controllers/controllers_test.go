package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mesafacil/mesafacil-api/models"
	"github.com/mesafacil/mesafacil-api/qrtoken"
	"github.com/mesafacil/mesafacil-api/realtime"
	"github.com/mesafacil/mesafacil-api/router"
	"github.com/mesafacil/mesafacil-api/services"
	"github.com/mesafacil/mesafacil-api/utils"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	codec  *qrtoken.Codec
	cache  *services.CacheService
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.Restaurant{}, &models.Subscription{}, &models.User{}, &models.PushSubscription{},
		&models.Table{}, &models.TableSession{}, &models.TableStatusLog{},
		&models.MenuItem{}, &models.Order{}, &models.OrderItem{}, &models.OrderStatusLog{},
		&models.Coupon{}, &models.CouponUsage{}, &models.WaiterCall{}, &models.Audience{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	for _, table := range []string{
		"restaurants", "subscriptions", "users", "push_subscriptions",
		"tables", "table_sessions", "table_status_logs",
		"menu_items", "orders", "order_items", "order_status_logs",
		"coupons", "coupon_usages", "waiter_calls", "audiences",
	} {
		db.Exec("DELETE FROM " + table)
	}

	hub := realtime.NewHub()
	codec := qrtoken.NewCodec("controller-test-secret")
	cache := services.NewCacheService()
	sessions := services.NewTableSessionService(db, hub)
	orders := services.NewOrderService(db, codec, sessions, hub, nil)
	calls := services.NewWaiterCallService(db, hub)

	r := router.SetupRouter(router.Deps{
		DB:       db,
		Hub:      hub,
		Codec:    codec,
		Cache:    cache,
		Sessions: sessions,
		Orders:   orders,
		Calls:    calls,
	})

	return &testEnv{db: db, router: r, codec: codec, cache: cache}
}

func (e *testEnv) seed(t *testing.T) (*models.Restaurant, *models.Table, []models.MenuItem) {
	t.Helper()

	restaurant := models.Restaurant{
		Name:   "Cantinho do Mar",
		Active: true,
		Settings: models.RestaurantSettings{
			TaxRate:           5,
			ServiceChargeRate: 10,
		},
	}
	if err := e.db.Create(&restaurant).Error; err != nil {
		t.Fatalf("seed restaurant: %v", err)
	}
	sub := models.Subscription{
		RestaurantID:       restaurant.ID,
		Status:             models.SubscriptionActive,
		CurrentPeriodStart: time.Now().Add(-time.Hour),
		CurrentPeriodEnd:   time.Now().Add(720 * time.Hour),
	}
	if err := e.db.Create(&sub).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}

	table := models.Table{RestaurantID: restaurant.ID, Number: 7, Status: models.TableStatusFree, NumericCode: "204617"}
	if err := e.db.Create(&table).Error; err != nil {
		t.Fatalf("seed table: %v", err)
	}

	items := []models.MenuItem{
		{RestaurantID: restaurant.ID, Name: "Matapa", Category: "Pratos", Price: 350, Available: true, ETA: 25},
		{RestaurantID: restaurant.ID, Name: "Sumo de Caju", Category: "Bebidas", Price: 120, Available: true, ETA: 5},
	}
	for i := range items {
		if err := e.db.Create(&items[i]).Error; err != nil {
			t.Fatalf("seed menu item: %v", err)
		}
	}

	return &restaurant, &table, items
}

func (e *testEnv) seedStaff(t *testing.T, restaurantID uint, role string) (models.User, string) {
	t.Helper()

	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := models.User{
		RestaurantID: restaurantID,
		Name:         "Gestora",
		Email:        fmt.Sprintf("%s-%d@cantinho.example", role, restaurantID),
		Password:     string(hashed),
		Role:         role,
	}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	token, err := utils.GenerateToken(user.ID, restaurantID, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return user, token
}

func doJSON(r *gin.Engine, method, url, token string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewBuffer(b)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req, _ := http.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestValidateMenuAccess(t *testing.T) {
	env := setupEnv(t)
	restaurant, table, _ := env.seed(t)

	token := env.codec.GenerateTableToken(restaurant.ID, table.ID)
	url := fmt.Sprintf("/api/public/menu/validate?r=%d&t=%d&token=%s", restaurant.ID, table.ID, token)

	w := doJSON(env.router, "GET", url, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	assert.Equal(t, true, resp["valid"])
	restaurantData := resp["restaurant"].(map[string]interface{})
	assert.Equal(t, restaurant.Name, restaurantData["name"])
	tableData := resp["table"].(map[string]interface{})
	assert.Equal(t, float64(table.Number), tableData["number"])
}

func TestValidateMenuAccessForgedToken(t *testing.T) {
	env := setupEnv(t)
	restaurant, table, _ := env.seed(t)

	url := fmt.Sprintf("/api/public/menu/validate?r=%d&t=%d&token=deadbeef.1700000000000", restaurant.ID, table.ID)
	w := doJSON(env.router, "GET", url, "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	resp := decode(t, w)
	assert.Equal(t, false, resp["valid"])
	assert.Equal(t, "invalid_token", resp["error"])
}

func TestValidateMenuAccessMaintenance(t *testing.T) {
	env := setupEnv(t)
	restaurant, table, _ := env.seed(t)
	env.db.Model(&models.Restaurant{}).Where("id = ?", restaurant.ID).
		Update("settings_maintenance", true)

	token := env.codec.GenerateTableToken(restaurant.ID, table.ID)
	url := fmt.Sprintf("/api/public/menu/validate?r=%d&t=%d&token=%s", restaurant.ID, table.ID, token)

	w := doJSON(env.router, "GET", url, "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decode(t, w)
	assert.Equal(t, true, resp["maintenance"])
}

func TestAccessByCode(t *testing.T) {
	env := setupEnv(t)
	restaurant, table, _ := env.seed(t)

	w := doJSON(env.router, "POST", "/api/public/menu/access-by-code", "", gin.H{"code": table.NumericCode})
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	assert.Equal(t, true, resp["valid"])
	redirect := resp["redirectUrl"].(string)
	assert.Contains(t, redirect, fmt.Sprintf("/menu/%d?table=%d&token=", restaurant.ID, table.ID))

	w = doJSON(env.router, "POST", "/api/public/menu/access-by-code", "", gin.H{"code": "000000"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPublicMenuCaching(t *testing.T) {
	env := setupEnv(t)
	restaurant, _, items := env.seed(t)

	url := fmt.Sprintf("/api/public/menu/%d", restaurant.ID)
	w := doJSON(env.router, "GET", url, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, env.cache.Len())

	// Second hit is served from cache even if the DB row changes underneath.
	env.db.Model(&models.MenuItem{}).Where("id = ?", items[0].ID).Update("name", "Renamed")
	w = doJSON(env.router, "GET", url, "", nil)
	resp := decode(t, w)
	data, _ := json.Marshal(resp["data"])
	assert.Contains(t, string(data), "Matapa")

	// A staff menu edit invalidates the cache.
	_, token := env.seedStaff(t, restaurant.ID, models.RoleManager)
	w = doJSON(env.router, "POST", "/api/menu-items", token, gin.H{
		"name": "Badjia", "category": "Petiscos", "price": 50,
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 0, env.cache.Len())
}

func TestCreatePublicOrderEndpoint(t *testing.T) {
	env := setupEnv(t)
	restaurant, table, items := env.seed(t)

	token := env.codec.GenerateTableToken(restaurant.ID, table.ID)
	w := doJSON(env.router, "POST", "/api/public/orders", "", gin.H{
		"restaurant":   restaurant.ID,
		"table":        table.ID,
		"token":        token,
		"customerName": "Berta",
		"phone":        "847711223",
		"items": []gin.H{
			{"item": items[0].ID, "quantity": 2},
		},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	resp := decode(t, w)
	order := resp["data"].(map[string]interface{})["order"].(map[string]interface{})
	// 2 x 350 = 700, +5% tax +10% service = 805.
	assert.Equal(t, 805.0, order["total"])
	assert.Equal(t, "pending", order["status"])
	assert.Equal(t, float64(table.Number), order["table_number"])

	var gotTable models.Table
	env.db.First(&gotTable, table.ID)
	assert.Equal(t, models.TableStatusOccupied, gotTable.Status)
}

func TestCreatePublicOrderRejectsBadToken(t *testing.T) {
	env := setupEnv(t)
	restaurant, table, items := env.seed(t)

	w := doJSON(env.router, "POST", "/api/public/orders", "", gin.H{
		"restaurant": restaurant.ID,
		"table":      table.ID,
		"token":      "deadbeef.1700000000000",
		"items":      []gin.H{{"item": items[0].ID, "quantity": 1}},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	resp := decode(t, w)
	assert.Equal(t, "invalid_token", resp["error"])
}

func TestStaffOrderAndStatusFlow(t *testing.T) {
	env := setupEnv(t)
	restaurant, table, items := env.seed(t)
	_, token := env.seedStaff(t, restaurant.ID, models.RoleWaiter)

	w := doJSON(env.router, "POST", "/api/orders", token, gin.H{
		"table_id": table.ID,
		"items":    []gin.H{{"item": items[1].ID, "quantity": 3}},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	resp := decode(t, w)
	order := resp["data"].(map[string]interface{})["order"].(map[string]interface{})
	orderID := uint(order["id"].(float64))
	assert.Equal(t, "waiter", order["source"])

	w = doJSON(env.router, "PATCH", fmt.Sprintf("/api/orders/%d/status", orderID), token, gin.H{"status": "confirmed"})
	assert.Equal(t, http.StatusOK, w.Code)

	// Skipping preparing straight to completed is rejected.
	w = doJSON(env.router, "PATCH", fmt.Sprintf("/api/orders/%d/status", orderID), token, gin.H{"status": "completed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp = decode(t, w)
	assert.Equal(t, "invalid_transition", resp["error"])
}

func TestStaffEndpointsRequireAuth(t *testing.T) {
	env := setupEnv(t)
	env.seed(t)

	w := doJSON(env.router, "GET", "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(env.router, "POST", "/api/tables/1/free", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFreeTableRoleGate(t *testing.T) {
	env := setupEnv(t)
	restaurant, table, items := env.seed(t)

	// Occupy via a public order.
	qrTok := env.codec.GenerateTableToken(restaurant.ID, table.ID)
	w := doJSON(env.router, "POST", "/api/public/orders", "", gin.H{
		"restaurant": restaurant.ID,
		"table":      table.ID,
		"token":      qrTok,
		"items":      []gin.H{{"item": items[0].ID, "quantity": 1}},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	_, kitchenToken := env.seedStaff(t, restaurant.ID, models.RoleKitchen)
	w = doJSON(env.router, "POST", fmt.Sprintf("/api/tables/%d/free", table.ID), kitchenToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, waiterToken := env.seedStaff(t, restaurant.ID, models.RoleWaiter)
	w = doJSON(env.router, "POST", fmt.Sprintf("/api/tables/%d/free", table.ID), waiterToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var gotTable models.Table
	env.db.First(&gotTable, table.ID)
	assert.Equal(t, models.TableStatusFree, gotTable.Status)
	assert.Nil(t, gotTable.CurrentSessionID)
}

func TestWaiterCallEndpoints(t *testing.T) {
	env := setupEnv(t)
	restaurant, table, _ := env.seed(t)
	_, token := env.seedStaff(t, restaurant.ID, models.RoleManager)

	w := doJSON(env.router, "POST", "/api/waiter-calls", "", gin.H{"tableId": table.ID})
	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decode(t, w)
	callID := uint(resp["data"].(map[string]interface{})["id"].(float64))

	// Second call while one is active conflicts.
	w = doJSON(env.router, "POST", "/api/waiter-calls", "", gin.H{"tableId": table.ID})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(env.router, "GET", "/api/waiter-calls/active", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	resp = decode(t, w)
	assert.Len(t, resp["data"].([]interface{}), 1)

	w = doJSON(env.router, "POST", fmt.Sprintf("/api/waiter-calls/%d/acknowledge", callID), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(env.router, "POST", fmt.Sprintf("/api/waiter-calls/%d/resolve", callID), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(env.router, "GET", "/api/waiter-calls/active", token, nil)
	resp = decode(t, w)
	assert.Empty(t, resp["data"])
}

func TestLoginAndProfile(t *testing.T) {
	env := setupEnv(t)
	restaurant, _, _ := env.seed(t)
	user, _ := env.seedStaff(t, restaurant.ID, models.RoleOwner)

	w := doJSON(env.router, "POST", "/api/login", "", gin.H{
		"email":    user.Email,
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	token := resp["data"].(map[string]interface{})["token"].(string)
	assert.NotEmpty(t, token)

	w = doJSON(env.router, "GET", "/api/profile", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(env.router, "POST", "/api/login", "", gin.H{
		"email":    user.Email,
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegenerateQR(t *testing.T) {
	env := setupEnv(t)
	restaurant, table, _ := env.seed(t)
	_, token := env.seedStaff(t, restaurant.ID, models.RoleManager)

	w := doJSON(env.router, "POST", fmt.Sprintf("/api/tables/%d/regenerate-qr", table.ID), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	data := resp["data"].(map[string]interface{})
	newCode := data["numeric_code"].(string)
	assert.Len(t, newCode, 6)
	assert.NotEqual(t, table.NumericCode, newCode)

	// The rotated code resolves while the old one no longer does.
	w = doJSON(env.router, "POST", "/api/public/menu/access-by-code", "", gin.H{"code": newCode})
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(env.router, "POST", "/api/public/menu/access-by-code", "", gin.H{"code": table.NumericCode})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
