package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/restaurant-frontdesk/internal/config"
	"github.com/iliyamo/restaurant-frontdesk/internal/external"
	"github.com/iliyamo/restaurant-frontdesk/internal/handler"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
	"github.com/iliyamo/restaurant-frontdesk/internal/pos"
	"github.com/iliyamo/restaurant-frontdesk/internal/queue"
	"github.com/iliyamo/restaurant-frontdesk/internal/repository"
	"github.com/iliyamo/restaurant-frontdesk/internal/router"
	"github.com/iliyamo/restaurant-frontdesk/internal/service"
	"github.com/iliyamo/restaurant-frontdesk/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("env: .env not loaded: %v", err)
	}
	cfg := config.Load()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	if st.db != nil {
		defer st.db.Close()
	}
	if err := st.seedPOS(ctx, config.LoadPOSConfig()); err != nil {
		log.Fatal(err)
	}
	seedManager(ctx, cfg, st.staff)

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb != nil {
		defer rdb.Close()
	}

	// Side effects: RabbitMQ when configured, in-process otherwise.
	proc := &queue.Processor{
		Guests:   st.guests,
		Payments: external.LogPayments{},
		Notifier: external.LogNotifier{},
		Dedupe:   queue.NewRedisDeduper(rdb, cfg.DedupeTTL),
	}
	inline := queue.Inline{P: proc, Async: true}
	var sidefx service.Enqueuer = inline
	if cfg.RabbitURL != "" {
		pub := queue.NewPublisher(cfg.RabbitURL, cfg.SideEffectQueue)
		defer pub.Close()
		sidefx = queue.Fallback{Primary: pub, Secondary: inline}
		go func() {
			if err := queue.StartConsumer(ctx, cfg.RabbitURL, cfg.SideEffectQueue, proc); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("sidefx-consumer: stopped: %v", err)
			}
		}()
	}

	avail := &service.AvailabilityService{
		Settings:     st.settings,
		Overrides:    st.overrides,
		Tables:       st.tables,
		Reservations: st.reservations,
		Clock:        clock,
	}
	reservations := &service.ReservationService{
		Store:        st.reservations,
		Tables:       st.tables,
		Settings:     st.settings,
		Availability: avail,
		SideEffects:  sidefx,
		Clock:        clock,
	}
	waitlist := &service.WaitlistService{
		Store:        st.waitlist,
		Settings:     st.settings,
		Reservations: reservations,
		Clock:        clock,
	}
	self := &service.SelfService{
		Reservations: reservations,
		Settings:     st.settings,
		Audit:        st.audit,
		SideEffects:  sidefx,
		Clock:        clock,
	}
	reconciler := &pos.Reconciler{
		Adapters: map[string]pos.Adapter{
			"mock": pos.NewMockAdapter(),
			"http": pos.NewHTTPAdapter("http"),
		},
		Tables:       st.tables,
		Occupancy:    st.occupancy,
		Settings:     st.settings,
		Reservations: reservations,
		Clock:        clock,
		Timeout:      cfg.POSSyncTimeout,
	}
	if cfg.POSSyncInterval > 0 {
		sched, err := pos.NewScheduler(reconciler, cfg.POSSyncInterval, clock)
		if err != nil {
			log.Fatalf("pos-sync: %v", err)
		}
		sched.Start()
		defer func() {
			if err := sched.Shutdown(); err != nil {
				log.Printf("pos-sync: shutdown: %v", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echomw.Recover())

	health := handler.Health(nil)
	if st.db != nil {
		health = handler.Health(st.db)
	}
	router.Register(e, router.Handlers{
		Health:    health,
		Auth:      &handler.AuthHandler{Staff: st.staff, JWTSecret: cfg.JWTSecret, AccessTTLMin: cfg.AccessTTLMin, Clock: clock},
		Public:    &handler.PublicHandler{Availability: avail, Reservations: reservations, Self: self},
		Staff:     &handler.StaffHandler{Slots: avail, Reservations: reservations, Self: self},
		Waitlist:  &handler.WaitlistHandler{Waitlist: waitlist},
		Floor:     &handler.FloorHandler{TableList: st.tables, Occupancy: st.occupancy, POS: reconciler},
		Overrides: &handler.OverrideHandler{Overrides: &service.OverrideService{Store: st.overrides}},
	}, router.Options{
		JWTSecret:       cfg.JWTSecret,
		Redis:           rdb,
		RateLimit:       config.LoadRateLimitConfig(),
		SelfServiceRate: config.LoadSelfServiceRateLimitConfig(),
		Cache:           config.LoadCacheConfig(),
	})

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// seedManager creates the configured manager account on first start.
func seedManager(ctx context.Context, cfg config.Config, staff staffStore) {
	if cfg.SeedManagerEmail == "" || cfg.SeedManagerPassword == "" {
		return
	}
	hash, err := utils.HashPassword(cfg.SeedManagerPassword, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("seed manager: %v", err)
	}
	_, err = staff.Create(ctx, cfg.SeedManagerEmail, hash, model.RoleManager)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
	case err != nil:
		log.Fatalf("seed manager: %v", err)
	default:
		log.Printf("seeded manager account %s", cfg.SeedManagerEmail)
	}
}
