package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/digkill/TGCreatorPayBot/internal/admin"
	"github.com/digkill/TGCreatorPayBot/internal/config"
	"github.com/digkill/TGCreatorPayBot/internal/database"
	"github.com/digkill/TGCreatorPayBot/internal/kpi"
	"github.com/digkill/TGCreatorPayBot/internal/repository"
	"github.com/digkill/TGCreatorPayBot/internal/service"
	"github.com/digkill/TGCreatorPayBot/internal/storage"
	"github.com/digkill/TGCreatorPayBot/internal/telegram"
	"github.com/digkill/TGCreatorPayBot/internal/workflow"
	"github.com/digkill/TGCreatorPayBot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(cfg.Debug)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	rules, err := kpi.Load(cfg.MinViewsFloor, cfg.KPIRules)
	if err != nil {
		log.Fatalf("kpi rules: %v", err)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("telegram bot: %v", err)
	}

	userRepo := repository.NewUserRepository(db, cfg.StoreTimeout)
	submissionRepo := repository.NewSubmissionRepository(db, cfg.StoreTimeout)

	notifier := telegram.NewAdminNotifier(botAPI, cfg.AdminChatID, cfg.Currency)
	userService := service.NewUserService(userRepo, submissionRepo)
	submissionService := service.NewSubmissionService(logr, rules, userRepo, submissionRepo, notifier)

	sessions := workflow.NewSessionManager()
	machine := workflow.NewMachine(userService, submissionService, cfg.Currency)
	orchestrator := workflow.NewOrchestrator(logr, machine, sessions, userService, submissionService,
		fmt.Sprintf("%d", cfg.AdminChatID))

	if cfg.SessionTTL > 0 {
		go sessions.Janitor(ctx, cfg.SessionTTL)
	}

	var exporter admin.Exporter
	if cfg.ExportEnabled() {
		e, err := storage.NewExporter(storage.Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
			Prefix:        cfg.S3Prefix,
		}, submissionRepo)
		if err != nil {
			log.Fatalf("storage exporter: %v", err)
		}
		exporter = e
	}

	bot := telegram.NewBot(cfg, botAPI, logr, orchestrator)

	adminServer := admin.NewServer(cfg.AdminListenAddr, cfg.AdminUsername, cfg.AdminPassword, logr, userService, submissionService, exporter)
	go func() {
		if err := adminServer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("admin server stopped", "err", err)
		}
	}()

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("bot stopped", "err", err)
	}
}
