package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ignite/leadbook/internal/config"
	"github.com/ignite/leadbook/internal/database"
	"github.com/ignite/leadbook/internal/pkg/distlock"
	"github.com/ignite/leadbook/internal/refcode"
	"github.com/ignite/leadbook/internal/schema"
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	listOnly := flag.Bool("list", false, "print applied migrations and exit")
	pendingOnly := flag.Bool("pending", false, "print pending migrations and exit")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()
	log.Printf("Connected to %s database", db.Dialect.Name)

	refs, err := refcode.New(cfg.References.Format, cfg.References.Prefix)
	if err != nil {
		log.Fatalf("references: %v", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		if redisClient, err = distlock.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			log.Printf("Warning: %v; using database lock", err)
		} else {
			defer redisClient.Close()
		}
	}
	lock := distlock.NewLock(redisClient, db, "schema-migrate", 5*time.Minute)
	ev := schema.NewEvolver(db, refs, schema.WithLock(lock, 2*time.Minute))

	switch {
	case *listOnly:
		applied, err := ev.Applied(ctx)
		if err != nil {
			log.Fatal(err)
		}
		for _, m := range applied {
			fmt.Printf("  %03d_%s  %s\n", m.Version, m.Name, m.AppliedAt.Format(time.RFC3339))
		}
		fmt.Printf("Total: %d applied\n", len(applied))

	case *pendingOnly:
		pending, err := ev.Pending(ctx)
		if err != nil {
			log.Fatal(err)
		}
		for _, m := range pending {
			fmt.Println(" ", m.ID())
		}
		fmt.Printf("Total: %d pending\n", len(pending))

	default:
		applied, err := ev.Migrate(ctx)
		for _, m := range applied {
			fmt.Printf("  %s ... OK\n", m.ID())
		}
		if err != nil {
			log.Printf("ERROR: %v", err)
			os.Exit(1)
		}
		log.Printf("Done: %d applied", len(applied))
	}
}
