package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	attendee_db "ms-events/internal/attendees/db"
	"ms-events/internal/auth"
	auth_db "ms-events/internal/auth/db"
	"ms-events/internal/config"
	"ms-events/internal/database"
	"ms-events/internal/database/migrations"
	event_db "ms-events/internal/events/db"
	"ms-events/internal/logger"
	"ms-events/internal/models"
)

const demoPassword = "secret123"

func resetSchema(ctx context.Context, cfg *config.Config, bunDB *bun.DB, log *logger.Logger, reset bool) error {
	if cfg.Database.Driver != "postgres" {
		if reset {
			log.Info("SEED", "Dropping tables...")
			if err := database.DropSchema(ctx, bunDB); err != nil {
				return err
			}
		}
		return database.CreateSchema(ctx, bunDB)
	}

	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
		MigrationsDir: cfg.Database.MigrationsDir,
		AutoMigrate:   true,
	}, log)
	defer runner.Close()

	if reset {
		log.Info("SEED", "Rolling back all migrations...")
		if err := runner.MigrateDown(); err != nil {
			return err
		}
	}
	return runner.RunMigrations()
}

func seedData(ctx context.Context, bunDB *bun.DB, cost int, log *logger.Logger) error {
	users := &auth_db.DB{Bun: bunDB}
	events := &event_db.DB{Bun: bunDB}
	attendees := &attendee_db.DB{Bun: bunDB}
	now := time.Now().UTC()

	hash, err := auth.HashPassword(demoPassword, cost)
	if err != nil {
		return err
	}
	alice := &models.User{Name: "Alice Wonderland", Email: "a@x.com", Password: hash, CreatedAt: now, UpdatedAt: now}
	bob := &models.User{Name: "Bob Builder", Email: "b@x.com", Password: hash, CreatedAt: now, UpdatedAt: now}
	for _, u := range []*models.User{alice, bob} {
		if err := users.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("create user %s: %w", u.Email, err)
		}
	}

	description := "Annual summer music festival."
	samples := []*models.Event{
		{Name: "Summer Fest 2026", Description: &description, StartTime: now.AddDate(0, 1, 0), EndTime: now.AddDate(0, 1, 3), OwnerID: alice.ID},
		{Name: "Go Meetup", StartTime: now.AddDate(0, 0, 7), EndTime: now.AddDate(0, 0, 7).Add(3 * time.Hour), OwnerID: bob.ID},
	}
	for i, e := range samples {
		e.CreatedAt = now.Add(time.Duration(i) * time.Second)
		e.UpdatedAt = e.CreatedAt
		if err := events.CreateEvent(ctx, e); err != nil {
			return fmt.Errorf("create event %q: %w", e.Name, err)
		}
	}

	registration := &models.Attendee{EventID: samples[0].ID, UserID: bob.ID, CreatedAt: now, UpdatedAt: now}
	if err := attendees.CreateAttendee(ctx, registration); err != nil {
		return fmt.Errorf("register attendee: %w", err)
	}

	log.Info("SEED", fmt.Sprintf("Seeded users a@x.com and b@x.com (password %q), %d events", demoPassword, len(samples)))
	return nil
}

func main() {
	reset := flag.Bool("reset", false, "drop the schema before seeding")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	log, err := logger.NewLogger(logger.Options{Service: "ms-events-seed"})
	if err != nil {
		panic(err)
	}
	defer log.Close()

	ctx := context.Background()
	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if err := resetSchema(ctx, cfg, bunDB, log, *reset); err != nil {
		log.Fatal("SEED", fmt.Sprintf("Failed to prepare schema: %v", err))
	}
	if err := seedData(ctx, bunDB, cfg.Auth.BcryptCost, log); err != nil {
		log.Fatal("SEED", fmt.Sprintf("Failed to seed data: %v", err))
	}
	log.Info("SEED", "Done.")
}
