package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"todonotes/internal/app"
	"todonotes/internal/database"
	"todonotes/internal/feed"
	"todonotes/internal/repository"
	"todonotes/internal/server"
	"todonotes/internal/service"

	_ "github.com/joho/godotenv/autoload"
)

func gracefulShutdown(apiServer *http.Server, dbService database.Service, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Println("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	if dbService != nil {
		log.Println("Closing database connection pool...")
		if err := dbService.Close(); err != nil {
			log.Printf("Error closing database connection pool: %v", err)
		} else {
			log.Println("Database connection pool closed.")
		}
	}

	log.Println("Server exiting")

	done <- true
}

func main() {
	// 1. Open the store. The handle is built here once and injected
	// everywhere; no package keeps its own global connection.
	dbService, err := database.New(database.ConfigFromEnv())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	// 2. Repository and services.
	taskRepo := repository.NewGormTaskRepository(dbService.GetDB())
	taskService := service.NewTaskService(taskRepo)
	syncService := service.NewSyncService(taskService, feed.NewHTTPClient(""))

	// 3. Initialize the store: migrate and seed sample tasks on an
	// empty table. Idempotent, runs on every start.
	if err := taskService.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize task store: %v", err)
	}

	// 4. Orchestrator and HTTP server.
	application := app.New(taskService, syncService)
	chiServer := server.NewServer(application, dbService)

	done := make(chan bool, 1)
	go gracefulShutdown(chiServer, dbService, done)

	log.Printf("Starting server on %s", chiServer.Addr)
	err = chiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("HTTP server ListenAndServe error: %v", err)
	}

	<-done
	log.Println("Graceful shutdown complete.")
}
