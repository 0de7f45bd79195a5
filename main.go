package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wawebhook/cache"
	"wawebhook/config"
	"wawebhook/controllers"
	"wawebhook/db"
	"wawebhook/logger"
	"wawebhook/repositories"
	"wawebhook/router"
	"wawebhook/services"
	"wawebhook/tools"
	"wawebhook/workers"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// =====================
// ENV esperadas
// =====================
//
// Server
// - CONFIG_PATH                   (json opcional, default config.json)
// - PORT, APP_MODE, APP_TOKEN, APP_VERSION
//
// WhatsApp Cloud API (Meta)
// - WHATSAPP_API_TOKEN, WHATSAPP_WEBHOOK_TOKEN, WHATSAPP_APP_SECRET
// - WHATSAPP_ENABLE_PROD_INTEGRATION (fora de PROD, false não chama a Meta)
// - WHATSAPP_API_RETRY_COUNT / _START_TIMEOUT, WHATSAPP_API_VERIFY_SSL
//
// Processamento
// - WHATSAPP_CONCATENATED_MESSAGE_WAITING_SECONDS
// - WHATSAPP_MESSAGE_PROCESSING_RETRIES / _INTERVAL / _EXPONENTIAL
//
// Opcionais
// - REDIS_ADDR                    (cache de mensagens entregues)
// - OPENAI_API_KEY                (sem ela, responde em eco)
//
// =====================

const shutdownTimeout = 30 * time.Second

func main() {
	// .env é só conveniência local
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.AppMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	database, err := db.Connect(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect database", "error", err)
	}
	defer database.Close()

	repos := repositories.New(database)

	pingers := map[string]controllers.Pinger{}
	processorOpts := []services.ProcessorOption{}
	var (
		rdb       *redis.Client
		forgetter services.CacheForgetter
	)
	if cfg.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		delivered := cache.NewRedisDeliveredCache(rdb, cfg.Redis.TTL())
		processorOpts = append(processorOpts, services.WithDeliveredCache(delivered))
		forgetter = delivered
		pingers["redis"] = delivered
		log.Info("Redis delivered cache enabled", "addr", cfg.Redis.Addr)
	}

	var replier services.Replier = services.EchoReplier{}
	if cfg.OpenAI.ApiKey != "" {
		replier = tools.NewOpenAIReplier(cfg.OpenAI, repos.Messages)
		log.Info("OpenAI replier enabled", "model", cfg.OpenAI.Model)
	}

	messenger := tools.NewWhatsAppClient(cfg, log)
	processor := services.NewProcessor(repos, messenger, replier, cfg.Processing, log, processorOpts...)
	runner := workers.NewRunner(workers.NewRetryPolicy(cfg.Processing), log)
	dispatcher := workers.NewDispatcher(processor, runner, log)
	archiver := services.NewArchiveService(repos, forgetter, log)

	r := gin.New()
	router.Initialize(r, cfg, database, router.Handlers{
		Webhook: controllers.NewWebhookController(cfg.WhatsApp, dispatcher, log),
		Admin:   controllers.NewAdminController(archiver),
		Info:    controllers.NewInfoController(cfg.AppVersion, pingers),
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.ApiPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Webhook listening", "port", cfg.ApiPort, "mode", cfg.AppMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}

		// deixa as tarefas em andamento terminarem (debounce + retries) antes de fechar o banco
		drain := workers.DrainTimeout(cfg)
		log.Info("Draining processing tasks", "pending", len(dispatcher.Pending()), "timeout", drain.String())
		drainCtx, cancelDrain := context.WithTimeout(context.Background(), drain)
		defer cancelDrain()
		if err := dispatcher.Wait(drainCtx); err != nil {
			log.Warn("Pending tasks not finished", "error", err)
		}
		if rdb != nil {
			return rdb.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", "error", err)
	}
}
