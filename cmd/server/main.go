package main

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"
	"github.com/opuslog/backend/internal/router"
	"github.com/opuslog/backend/pkg/config"
	"github.com/opuslog/backend/pkg/firebase"
	"github.com/opuslog/backend/validators"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database connections
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	// Initialize Firebase
	ctx := context.Background()
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes, dependencies and background workers
	queue, scheduler := router.SetupRoutes(e, db.Postgres, db.Mongo, firebaseApp.AuthClient)
	defer queue.Stop()
	defer scheduler.Stop()

	// Validator
	e.Validator = validators.NewValidator()

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
