package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/worldautistic/worldautistic-api/internal/config"
	"github.com/worldautistic/worldautistic-api/internal/database"
	"github.com/worldautistic/worldautistic-api/internal/handler"
	"github.com/worldautistic/worldautistic-api/internal/queue"
	"github.com/worldautistic/worldautistic-api/internal/repository"
	"github.com/worldautistic/worldautistic-api/internal/router"
	"github.com/worldautistic/worldautistic-api/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	streaks := repository.NewStreakRepo(db)
	whitelist := repository.NewWhitelistRepo(db)
	cards := repository.NewCardRepo(db)
	purchases := repository.NewPurchaseRepo(db)

	streakSvc := service.NewStreakService(streaks)
	subsSvc := service.NewSubscriptionService(users)

	rdb := config.NewRedisClient() // nil disables rate limiting and caching

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, users, tokens, whitelist, streakSvc, subsSvc),
		Subs:      handler.NewSubscriptionHandler(subsSvc),
		Webhook:   handler.NewWebhookHandler(cfg, users, purchases, subsSvc),
		Cards:     handler.NewCardHandler(cards),
		Whitelist: handler.NewWhitelistHandler(whitelist),
		Users:     handler.NewAdminUserHandler(users, purchases),
		Streaks:   handler.NewStreakHandler(streakSvc),
	}, rdb)

	// Purchase audit consumer; runs its own reconnect loop.
	go func() {
		if err := queue.StartPurchaseConsumer(); err != nil {
			log.Printf("purchase consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
