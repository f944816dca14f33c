package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cardtable-server/internal/config"
	"cardtable-server/internal/database"
	"cardtable-server/internal/rules"
	"cardtable-server/internal/server"
)

func gracefulShutdown(customServer *server.Server, httpServer *http.Server, db database.Service, stopTasks context.CancelFunc, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Println("Shutdown signal received, press Ctrl+C again to force")
	stop()
	stopTasks()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Save games and tell players before the listener closes.
	if err := customServer.Shutdown(ctx); err != nil {
		log.Printf("Error during custom shutdown: %v", err)
	}
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server forced to shutdown with error: %v", err)
	}
	if err := db.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	done <- true
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.New(context.Background(), cfg.DBDriver, cfg.DBURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := database.Migrate(db.DB(), db.Dialect(), cfg.MigrationsDir); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	catalog, err := rules.NewCatalog()
	if err != nil {
		log.Fatalf("Failed to load built-in rules: %v", err)
	}
	if cfg.RulesDir != "" {
		if err := catalog.LoadDir(cfg.RulesDir); err != nil {
			log.Fatalf("Failed to load rules from %s: %v", cfg.RulesDir, err)
		}
	}
	log.Printf("Loaded %d rule sets", len(catalog.List()))

	customServer, httpServer := server.NewServer(cfg, db, catalog)

	tasks, stopTasks := context.WithCancel(context.Background())
	customServer.Start(tasks)

	done := make(chan bool, 1)
	go gracefulShutdown(customServer, httpServer, db, stopTasks, done)

	log.Printf("Listening on %s", httpServer.Addr)
	err = httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	<-done
	log.Println("Graceful shutdown complete.")
}
