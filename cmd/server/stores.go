package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/iliyamo/restaurant-frontdesk/internal/config"
	"github.com/iliyamo/restaurant-frontdesk/internal/database"
	"github.com/iliyamo/restaurant-frontdesk/internal/external"
	"github.com/iliyamo/restaurant-frontdesk/internal/handler"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
	"github.com/iliyamo/restaurant-frontdesk/internal/pos"
	"github.com/iliyamo/restaurant-frontdesk/internal/repository"
	"github.com/iliyamo/restaurant-frontdesk/internal/repository/memstore"
	"github.com/iliyamo/restaurant-frontdesk/internal/service"
)

type settingsStore interface {
	service.SettingsStore
	pos.SettingsStore
}

type staffStore interface {
	handler.StaffAccounts
	Create(ctx context.Context, email, passwordHash, role string) (uint64, error)
}

// stores is the persistence wiring shared by MySQL and demo mode.
type stores struct {
	db           *sql.DB // nil in demo mode
	reservations service.ReservationStore
	tables       service.TableStore
	overrides    service.OverrideStore
	settings     settingsStore
	waitlist     service.WaitlistStore
	occupancy    pos.OccupancyStore
	audit        service.AuditStore
	staff        staffStore
	guests       external.GuestStats
	// setDefault writes a setting only when it is missing.
	setDefault func(ctx context.Context, key, value string) error
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	if cfg.Demo() {
		return demoStores(), nil
	}
	db, err := database.Open(ctx, database.Params{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	settings := repository.NewSettingsRepo(db)
	return &stores{
		db:           db,
		reservations: repository.NewReservationRepo(db),
		tables:       repository.NewTableRepo(db),
		overrides:    repository.NewOverrideRepo(db),
		settings:     settings,
		waitlist:     repository.NewWaitlistRepo(db),
		occupancy:    repository.NewOccupancyRepo(db),
		audit:        repository.NewAuditRepo(db),
		staff:        repository.NewStaffRepo(db),
		guests:       repository.NewGuestRepo(db),
		setDefault:   settings.SetDefault,
	}, nil
}

// demoStores runs on the in-memory store with a small dining room.
func demoStores() *stores {
	m := memstore.New()
	tables := []model.RestaurantTable{
		{Name: "1", Section: "window", MinCapacity: 1, MaxCapacity: 2, IsActive: true},
		{Name: "2", Section: "window", MinCapacity: 1, MaxCapacity: 2, IsActive: true},
		{Name: "3", Section: "main", MinCapacity: 2, MaxCapacity: 4, IsActive: true},
		{Name: "4", Section: "main", MinCapacity: 2, MaxCapacity: 4, IsActive: true},
		{Name: "5", Section: "main", MinCapacity: 4, MaxCapacity: 6, IsActive: true},
		{Name: "10", Section: "patio", MinCapacity: 6, MaxCapacity: 10, IsActive: true},
	}
	for _, t := range tables {
		m.Tables().Add(t)
	}
	log.Printf("demo: in-memory store with %d tables", len(tables))
	settings := m.Settings()
	return &stores{
		reservations: m.Reservations(),
		tables:       m.Tables(),
		overrides:    m.Overrides(),
		settings:     settings,
		waitlist:     m.Waitlist(),
		occupancy:    m.Occupancy(),
		audit:        m.Audit(),
		staff:        m.Staff(),
		guests:       m.Guests(),
		setDefault: func(_ context.Context, key, value string) error {
			settings.Set(key, value)
			return nil
		},
	}
}

// seedPOS fills POS connection settings the table does not have yet.
func (s *stores) seedPOS(ctx context.Context, p config.POSConfig) error {
	for k, v := range map[string]string{
		model.KeyPOSVendor:     p.Vendor,
		model.KeyPOSBaseURL:    p.BaseURL,
		model.KeyPOSAPIKey:     p.APIKey,
		model.KeyPOSLocationID: p.LocationID,
	} {
		if v == "" {
			continue
		}
		if err := s.setDefault(ctx, k, v); err != nil {
			return fmt.Errorf("seed %s: %w", k, err)
		}
	}
	return nil
}
