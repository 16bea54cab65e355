package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mesafacil/mesafacil-api/controllers"
	"github.com/mesafacil/mesafacil-api/middlewares"
	"github.com/mesafacil/mesafacil-api/models"
	"github.com/mesafacil/mesafacil-api/qrtoken"
	"github.com/mesafacil/mesafacil-api/realtime"
	"github.com/mesafacil/mesafacil-api/services"
)

// Deps carries the shared collaborators the handlers close over.
type Deps struct {
	DB       *gorm.DB
	Hub      *realtime.Hub
	Codec    *qrtoken.Codec
	Cache    *services.CacheService
	Sessions *services.TableSessionService
	Orders   *services.OrderService
	Calls    *services.WaiterCallService
}

func SetupRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	userCtrl := controllers.NewUserController(deps.DB)
	publicCtrl := controllers.NewPublicController(deps.DB, deps.Codec)
	menuCtrl := controllers.NewMenuController(deps.DB, deps.Cache)
	orderCtrl := controllers.NewOrderController(deps.DB, deps.Orders)
	tableCtrl := controllers.NewTableController(deps.DB, deps.Sessions, deps.Codec)
	callCtrl := controllers.NewWaiterCallController(deps.DB, deps.Calls)
	wsCtrl := controllers.NewWSController(deps.Hub)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.GET("/ws", wsCtrl.Serve)

	// Unauthenticated surface, rate limited.
	public := r.Group("/api")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/login", userCtrl.Login)
		public.POST("/register", userCtrl.Register)

		public.GET("/public/menu/validate", publicCtrl.ValidateMenuAccess)
		public.POST("/public/menu/access-by-code", publicCtrl.AccessByCode)
		public.GET("/public/menu/:restaurant_id", menuCtrl.GetPublicMenu)
		public.POST("/public/orders", orderCtrl.CreatePublicOrder)
		public.POST("/waiter-calls", callCtrl.CreateCall)
	}

	// Staff surface behind JWT.
	staff := r.Group("/api")
	staff.Use(middlewares.AuthMiddleware())
	{
		staff.GET("/profile", userCtrl.GetProfile)
		staff.POST("/push-subscriptions", userCtrl.RegisterPushSubscription)

		staff.POST("/orders", orderCtrl.CreateStaffOrder)
		staff.GET("/orders", orderCtrl.GetAllOrders)
		staff.GET("/orders/:order_id", orderCtrl.GetOrderByID)
		staff.PATCH("/orders/:order_id/status", orderCtrl.UpdateOrderStatus)

		staff.GET("/menu-items", menuCtrl.GetAllMenuItems)
		staff.POST("/menu-items", menuCtrl.CreateMenuItem)
		staff.PUT("/menu-items/:item_id", menuCtrl.UpdateMenuItem)

		staff.GET("/tables", tableCtrl.GetAllTables)
		staff.GET("/tables/:table_id/session", tableCtrl.GetActiveSession)
		staff.GET("/tables/:table_id/sessions", tableCtrl.GetSessionHistory)

		managers := staff.Group("/")
		managers.Use(middlewares.RequireRoles(models.RoleManager, models.RoleWaiter))
		{
			managers.PATCH("/tables/:table_id/status", tableCtrl.UpdateTableStatus)
			managers.POST("/tables/:table_id/free", tableCtrl.FreeTable)
			managers.POST("/tables/:table_id/regenerate-qr", tableCtrl.RegenerateQR)

			managers.POST("/waiter-calls/:call_id/acknowledge", callCtrl.AcknowledgeCall)
			managers.POST("/waiter-calls/:call_id/resolve", callCtrl.ResolveCall)
			managers.GET("/waiter-calls/active", callCtrl.GetActiveCalls)
			managers.GET("/waiter-calls/history", callCtrl.GetCallHistory)
		}
	}

	return r
}
