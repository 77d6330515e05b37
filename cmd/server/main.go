package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/oh-scheduler-go/internal/app"
	"github.com/arnavshah/oh-scheduler-go/pkg/config"
	"github.com/arnavshah/oh-scheduler-go/pkg/logger"
)

func main() {
	config.LoadEnv()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		// Without a section the server still manages keys and solves inputs.
		log.Printf("no section configured (%v), run endpoints disabled", err)
		cfg = config.FromEnv()
	}

	l, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("could not build logger: %v", err)
	}
	defer l.Sync()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, l)
	if err != nil {
		l.Fatal("could not start", "error", err)
	}
	defer a.Close(ctx)

	r, err := a.Router()
	if err != nil {
		l.Fatal("could not build router", "error", err)
	}

	l.Info("server starting", "port", cfg.Server.Port, "section", cfg.Section)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		l.Fatal("could not run server", "error", err)
	}
}
