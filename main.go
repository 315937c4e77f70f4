package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"clipscribe/internal/api"
	"clipscribe/internal/config"
	"clipscribe/internal/identity"
	"clipscribe/internal/objectstore"
	"clipscribe/internal/redis"
	"clipscribe/internal/service/accounts"
	"clipscribe/internal/service/media"
	"clipscribe/internal/session"
	"clipscribe/internal/storage"
	"clipscribe/internal/transcriber"
)

func main() {
	cfgPath := os.Getenv("CLIPSCRIBE_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("CLIPSCRIBE_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	sessionTTL := time.Duration(cfg.BasicConfig.SessionTTLMinutes) * time.Minute
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}

	// Sessions live in redis when one is configured, otherwise in process.
	var sessionStore session.Store
	if cfg.Redis.Host != "" {
		rdb, err := redis.NewClient(cfg)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer rdb.Close()
		sessionStore = session.NewRedisStore(rdb, sessionTTL)
	} else {
		sessionStore = session.NewMemoryStore(sessionTTL)
	}
	sessions := session.NewManager(sessionStore, cfg.BasicConfig.SessionCookie, sessionTTL)

	ctx := context.Background()
	store, err := objectstore.NewGCS(ctx, cfg.ObjectStore)
	if err != nil {
		log.Fatalf("init object store: %v", err)
	}
	gemini, err := transcriber.NewGemini(ctx, cfg.Transcriber)
	if err != nil {
		log.Fatalf("init transcriber: %v", err)
	}

	stagedTTL := time.Duration(cfg.BasicConfig.StagedFileTTLMinutes) * time.Minute
	mediaSvc := media.NewService(db, store, gemini, cfg.BasicConfig.FileBaseDir, stagedTTL)
	accountsSvc := accounts.NewService(db, identity.NewClient(cfg.Identity))

	janitorCtx, janitorCancel := context.WithCancel(ctx)
	defer janitorCancel()
	cleanInterval := time.Duration(cfg.BasicConfig.StagedCleanMinutes) * time.Minute
	mediaSvc.StartJanitor(janitorCtx, cleanInterval)

	handlers := api.NewHandler(accountsSvc, mediaSvc, sessions, cfg.ObjectStore)

	router := gin.Default()
	router.LoadHTMLGlob("web/templates/*.html")
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8080"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
