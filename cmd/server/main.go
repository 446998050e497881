package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"audioscribe/internal/api"
	"audioscribe/internal/config"
	"audioscribe/internal/metrics"
	"audioscribe/internal/storage"
	"audioscribe/internal/stt"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode (default to release mode)
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	provider, err := stt.CreateProvider(cfg.Provider)
	if err != nil {
		log.Fatalf("Failed to create STT provider: %v", err)
	}
	log.Printf("Using STT provider: %s", provider.Name())

	if err := os.MkdirAll(cfg.OutputFolder, 0o755); err != nil {
		log.Fatalf("Failed to create output folder %s: %v", cfg.OutputFolder, err)
	}

	svc := api.NewService(cfg, provider, storage.NewStore(), metrics.New(prometheus.DefaultRegisterer))

	r := gin.Default()
	r.Use(corsMiddleware())
	svc.RegisterRoutes(r)

	log.Printf("Audioscribe backend running on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// corsMiddleware adds CORS headers for browser clients
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
