package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"cityhelper/backend/internal/api/handler"
	"cityhelper/backend/internal/config"
	"cityhelper/backend/internal/intake"
	"cityhelper/backend/internal/models"
	"cityhelper/backend/internal/relay"
	"cityhelper/backend/internal/session"
	"cityhelper/backend/internal/storage"
	"cityhelper/backend/internal/telegram"
)

func setupDrafts(cfg *config.Config) session.Store {
	if cfg.RedisAddr == "" {
		log.Println("Warning: REDIS_ADDR is not set, drafts will not survive restarts")
		return session.NewMemoryStore()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}
	return session.NewRedisStore(rdb)
}

func setupDatabase(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	err = db.AutoMigrate(
		&models.Citizen{},
		&models.Complaint{},
		&models.OperatorMessage{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func main() {
	log.Println("Starting City Helper bot...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: no .env file found")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	db := setupDatabase(cfg)
	drafts := setupDrafts(cfg)
	log.Println("Database connection established, migrations complete.")

	repo := storage.NewService(db)
	machine := intake.NewMachine(drafts, repo)

	bot, err := telegram.NewBotService(cfg.BotToken, repo, machine)
	if err != nil {
		log.Fatalf("Failed to start Telegram bot: %v", err)
	}

	loop := relay.NewLoop(repo, bot.Client(), cfg.RelayInterval)
	go loop.Run(context.Background())
	go bot.Run()

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:           true,
		AllowMethods:              []string{"POST", "GET", "OPTIONS"},
		AllowHeaders:              []string{"Content-Type"},
		OptionsResponseStatusCode: http.StatusOK,
	}))

	h := handler.NewHandler(repo, bot.Client())
	h.Register(r)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Printf("🌍 Web server running on port %s", cfg.Port)
	log.Fatal(server.ListenAndServe())
}
