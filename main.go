package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/mesafacil/mesafacil-api/config"
	"github.com/mesafacil/mesafacil-api/middlewares"
	"github.com/mesafacil/mesafacil-api/models"
	"github.com/mesafacil/mesafacil-api/qrtoken"
	"github.com/mesafacil/mesafacil-api/realtime"
	"github.com/mesafacil/mesafacil-api/router"
	"github.com/mesafacil/mesafacil-api/services"
	"github.com/mesafacil/mesafacil-api/utils"
)

func init() {
	utils.InitLogger()
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Printf("No .env file loaded: %v", err)
	}
}

func main() {
	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	autoMigrate(db)

	hub := realtime.NewHub()
	codec := qrtoken.NewCodecFromEnv()
	cache := services.NewCacheService()
	sessions := services.NewTableSessionService(db, hub)
	notifier := services.NewWebPushNotifier(db)
	orders := services.NewOrderService(db, codec, sessions, hub, notifier)
	calls := services.NewWaiterCallService(db, hub)

	calls.StartCleanup()
	defer calls.Stop()

	r := router.SetupRouter(router.Deps{
		DB:       db,
		Hub:      hub,
		Codec:    codec,
		Cache:    cache,
		Sessions: sessions,
		Orders:   orders,
		Calls:    calls,
	})

	rateLimiter := middlewares.NewRateLimiter(50, 1)
	r.Use(rateLimiter.RateLimit())

	r.SetTrustedProxies([]string{"127.0.0.1"})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("Listening on port %s", port)
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.Restaurant{},
		&models.Subscription{},
		&models.User{},
		&models.PushSubscription{},
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
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
}
