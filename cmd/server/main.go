// Command main is the entry point for the Chronicle backend server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chronicle/internal/bootstrap"
	"chronicle/internal/config"
	"chronicle/internal/observability"
	"chronicle/internal/server"
)

// @title Chronicle API
// @version 1.0
// @description Content sharing platform API with posts, categories, images and per-post visit analytics
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@chronicle.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8240
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize tracing
	shutdownTracing, err := observability.InitTracing(context.Background(), observability.TracingConfig{
		ServiceName: "chronicle-api",
		Endpoint:    cfg.OTLPEndpoint,
		Environment: cfg.Env,
		SampleRatio: 1.0,
	})
	if err != nil {
		log.Printf("Tracing disabled: %v", err)
	}

	// Establish runtime dependencies, then build the server on top of them
	db, redisClient, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	srv, err := server.NewServerWithDeps(cfg, db, redisClient)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server resource shutdown error: %v", err)
		}
		if shutdownTracing != nil {
			if err := shutdownTracing(ctx); err != nil {
				log.Printf("Tracing shutdown error: %v", err)
			}
		}
	}()

	// Start server
	log.Fatal(srv.Start())
}
