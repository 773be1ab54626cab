package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"trainbook/internal/booking"
	"trainbook/internal/config"
	"trainbook/internal/database"
	"trainbook/internal/handler"
	"trainbook/internal/middleware"
	"trainbook/internal/payment"
	"trainbook/internal/queue"
	"trainbook/internal/reconciler"
	"trainbook/internal/recurrence"
	"trainbook/internal/repository"
	"trainbook/internal/router"
	"trainbook/internal/service"
)

func main() {
	// .env is a local-development convenience; in production the
	// environment is set by the orchestrator.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it rate limiting, response caching and
	// the webhook event lock degrade gracefully.
	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	venues := repository.NewVenueRepo(db)
	trainers := repository.NewTrainerRepo(db)
	sessions := repository.NewSessionRepo(db)
	subs := repository.NewSubscriptionRepo(db)
	notes := repository.NewNotificationRepo(db)
	feedback := repository.NewFeedbackRepo(db)

	pub := service.NewQueuePublisher(cfg.AMQPURL)
	bookingSvc := booking.NewService(sessions, subs, users, notes, pub)
	gen := recurrence.NewGenerator(sessions)
	rec := reconciler.New(sessions, subs, notes, bookingSvc, pub)

	gateway := payment.NewGateway(payment.GatewayConfig{
		ShopID:    cfg.PaymentShopID,
		SecretKey: cfg.PaymentSecretKey,
		BaseURL:   cfg.PaymentBaseURL,
		ReturnURL: cfg.PaymentReturnURL,
	}, nil)
	var lock payment.EventLock
	if rdb != nil {
		lock = payment.NewRedisLock(rdb)
	}

	authH := handler.NewAuthHandler(cfg, users, tokens)
	venueH := handler.NewVenueHandler(venues)
	trainerH := handler.NewTrainerHandler(trainers, users)
	sessionH := handler.NewSessionHandler(sessions, venues, trainers, gen)
	enrollH := handler.NewEnrollmentHandler(bookingSvc)
	subH := handler.NewSubscriptionHandler(subs, trainers, venues, notes, gateway, pub)
	noteH := handler.NewNotificationHandler(notes)
	feedbackH := handler.NewFeedbackHandler(feedback, sessions, users)
	opsH := handler.NewOpsHandler(gen, rec)
	webhookH := handler.NewWebhookHandler(db, pub, lock)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, webhookH)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, venueH, trainerH, sessionH, feedbackH, cache)
	router.RegisterUser(e, enrollH, subH, noteH, feedbackH, cfg.JWTSecret, limiter)
	router.RegisterAdmin(e, venueH, trainerH, sessionH, opsH, cfg.JWTSecret)

	// The consumer drains notification events independently of request
	// handling and reconnects on broker failures.
	go func() {
		if err := queue.StartNotificationConsumer(cfg.AMQPURL); err != nil {
			log.Printf("queue consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
