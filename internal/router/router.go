package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/restaurant-frontdesk/internal/config"
	"github.com/iliyamo/restaurant-frontdesk/internal/handler"
	"github.com/iliyamo/restaurant-frontdesk/internal/middleware"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Health    echo.HandlerFunc
	Auth      *handler.AuthHandler
	Public    *handler.PublicHandler
	Staff     *handler.StaffHandler
	Waitlist  *handler.WaitlistHandler
	Floor     *handler.FloorHandler
	Overrides *handler.OverrideHandler
}

// Options carries what the middleware needs. Redis may be nil.
type Options struct {
	JWTSecret       string
	Redis           *redis.Client
	RateLimit       config.RateLimitConfig
	SelfServiceRate config.RateLimitConfig
	Cache           config.CacheConfig
}

// Register mounts the guest, staff and manager APIs.
func Register(e *echo.Echo, h Handlers, opt Options) {
	cache := middleware.NewResponseCache(opt.Cache, opt.Redis)
	limit := middleware.NewTokenBucket(opt.RateLimit, opt.Redis)
	bust := cache.InvalidateOnWrite()

	e.GET("/healthz", h.Health)

	// Guest API.
	pub := e.Group("/v1", limit)
	pub.GET("/availability", h.Public.GetAvailability, cache.Middleware())
	pub.POST("/reservations", h.Public.CreateReservation, bust)
	pub.POST("/auth/login", h.Auth.Login)

	self := pub.Group("/self-service", middleware.NewTokenBucket(opt.SelfServiceRate, opt.Redis))
	self.POST("/lookup", h.Public.Lookup)
	self.POST("/cancel", h.Public.Cancel, bust)
	self.POST("/modify", h.Public.Modify, bust)

	// Front-of-house.
	staff := e.Group("/v1/staff",
		middleware.JWTAuth(opt.JWTSecret),
		middleware.RequireRole(model.RoleStaff, model.RoleManager),
		bust,
	)
	staff.GET("/me", h.Auth.Me)
	staff.GET("/availability", h.Staff.Availability)
	staff.GET("/reservations", h.Staff.List)
	staff.POST("/reservations", h.Staff.Create)
	staff.GET("/reservations/:id", h.Staff.Get)
	staff.PATCH("/reservations/:id", h.Staff.Edit)
	staff.GET("/reservations/:id/history", h.Staff.History)
	staff.POST("/reservations/:id/:action", h.Staff.Action)

	staff.GET("/waitlist", h.Waitlist.List)
	staff.POST("/waitlist", h.Waitlist.Add)
	staff.POST("/waitlist/:id/notify", h.Waitlist.Notify)
	staff.POST("/waitlist/:id/seat", h.Waitlist.Seat)
	staff.DELETE("/waitlist/:id", h.Waitlist.Remove)

	staff.GET("/tables", h.Floor.Tables)
	staff.POST("/pos/sync", h.Floor.Sync)
	staff.GET("/pos/status", h.Floor.Status)

	// Manager-only calendar.
	mgr := staff.Group("/overrides", middleware.RequireRole(model.RoleManager))
	mgr.GET("/:date", h.Overrides.Get)
	mgr.PUT("/:date", h.Overrides.Put)
	mgr.DELETE("/:date", h.Overrides.Delete)
}
