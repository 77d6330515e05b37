package handler

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/arnavshah/oh-scheduler-go/internal/app"
	"github.com/arnavshah/oh-scheduler-go/pkg/config"
	"github.com/arnavshah/oh-scheduler-go/pkg/logger"
)

var r *gin.Engine

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := config.FromEnv()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			log.Printf("ignoring %s: %v", path, err)
		} else {
			cfg = loaded
		}
	}
	// Serverless functions have no writable working directory.
	if cfg.Database.URL == "" && cfg.Database.Path == "" {
		cfg.Database.Path = "/tmp/ohsched.db"
	}

	l, err := logger.New(cfg.LogMode)
	if err != nil {
		l = logger.Nop()
	}

	gin.SetMode(gin.ReleaseMode)
	a, err := app.New(context.Background(), cfg, l)
	if err != nil {
		log.Fatalf("could not start: %v", err)
	}
	r, err = a.Router()
	if err != nil {
		log.Fatalf("could not build router: %v", err)
	}
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
