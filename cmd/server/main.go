package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/leadbook/internal/api"
	"github.com/ignite/leadbook/internal/archive"
	"github.com/ignite/leadbook/internal/config"
	"github.com/ignite/leadbook/internal/database"
	"github.com/ignite/leadbook/internal/pkg/distlock"
	"github.com/ignite/leadbook/internal/pkg/logger"
	"github.com/ignite/leadbook/internal/refcode"
	"github.com/ignite/leadbook/internal/repository/sqldb"
	"github.com/ignite/leadbook/internal/schema"
	"github.com/ignite/leadbook/internal/service/activity"
	"github.com/ignite/leadbook/internal/service/customer"
	"github.com/ignite/leadbook/internal/service/lead"
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("address %s is already in use: %v\n"+
			"  Hint: run 'lsof -i :<port>' to find the blocking process", addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	log.Println("[server] leadbook API starting")

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Configure(cfg.Log.Level, cfg.Log.Redact())

	addr := cfg.Server.Addr()
	if err := checkPortAvailable(addr); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	log.Printf("[server] connected to %s database", db.Dialect.Name)

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = distlock.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("Warning: %v; falling back to database locks", err)
		} else {
			defer redisClient.Close()
			log.Printf("[server] redis connected at %s", cfg.Redis.Addr)
		}
	}

	refs, err := refcode.New(cfg.References.Format, cfg.References.Prefix)
	if err != nil {
		log.Fatalf("Invalid reference config: %v", err)
	}

	lock := distlock.NewLock(redisClient, db, "schema-migrate", 5*time.Minute)
	applied, err := schema.NewEvolver(db, refs, schema.WithLock(lock, 2*time.Minute)).Migrate(ctx)
	if err != nil {
		log.Fatalf("Schema migration failed: %v", err)
	}
	for _, m := range applied {
		log.Printf("[schema] applied %s", m.ID())
	}

	var archiver *archive.Archiver
	if cfg.Archive.Enabled {
		store, err := archive.NewStore(ctx, cfg.Archive)
		if err != nil {
			log.Fatalf("Failed to initialize archive: %v", err)
		}
		archiver = archive.New(store, cfg.Archive.Prefix)
		log.Printf("[server] export archive enabled (prefix %q)", cfg.Archive.Prefix)
	}

	server := api.NewServer(cfg.Server, api.Deps{
		Leads:       lead.NewService(sqldb.NewLeadRepo(db), refs),
		Customers:   customer.NewService(sqldb.NewCustomerRepo(db), nil),
		Activities:  activity.NewService(sqldb.NewActivityRepo(db), nil),
		Archiver:    archiver,
		Health:      api.NewHealthChecker(db, redisClient),
		Import:      cfg.Import,
		MaxUploadMB: cfg.Server.MaxUploadMB,
	})

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
