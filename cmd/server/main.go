package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Eo-0118/Black-Kingdom/internal/api"
	"github.com/Eo-0118/Black-Kingdom/internal/auth"
	"github.com/Eo-0118/Black-Kingdom/internal/config"
	"github.com/Eo-0118/Black-Kingdom/internal/database"
	"github.com/Eo-0118/Black-Kingdom/internal/events"
	"github.com/Eo-0118/Black-Kingdom/internal/logging"
	"github.com/Eo-0118/Black-Kingdom/internal/metrics"
	"github.com/Eo-0118/Black-Kingdom/internal/notify"
	"github.com/Eo-0118/Black-Kingdom/internal/repository"
	"github.com/Eo-0118/Black-Kingdom/internal/service"
	"github.com/Eo-0118/Black-Kingdom/shared/access"
	"github.com/Eo-0118/Black-Kingdom/shared/audit"
	"github.com/Eo-0118/Black-Kingdom/shared/reminders"
)

// notifier is what every Telegram-facing component needs.
type notifier interface {
	reminders.Notifier
	audit.Notifier
	notify.EventHandlers
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		boot := logging.New("info", true)
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New(cfg.Logging.Level, !cfg.Logging.JSON)
	loc := cfg.Location()

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}
	listing := repository.NewCachedRepository(db, rdb, cfg.ShopsCacheTTL(), &logger)

	shopsLog := logger.With().Str("component", "shops").Logger()
	err = config.WatchShops(ctx, cfg.ShopsConfigPath, cfg.ShopsReloadInterval(), shopsLog, func(shops *config.ShopsConfig) {
		if err := db.SyncShopsFromConfig(ctx, shops); err != nil {
			shopsLog.Error().Err(err).Msg("sync shops")
			return
		}
		listing.InvalidateShops(ctx)
		shopsLog.Info().Int("shops", len(shops.Shops)).Msg("shops synced")
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("load shops config")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.TokenTTL())
	bus := events.NewEventBus()

	notifications := newNotifier(cfg, db, logger)
	subscription := notify.Subscribe(bus, notifications, logger)

	authSvc := service.NewAuthService(db, tokens, cfg.Auth.BcryptCost, &logger).WithMetrics(m)
	reservationSvc := service.NewReservationService(
		db,
		db,
		listing,
		access.NewService(db, logger),
		bus,
		service.ReservationConfig{RejectPastDates: cfg.Reservation.RejectPastDates, Location: loc},
		&logger,
	).WithMetrics(m)

	router := api.NewRouter(api.RouterConfig{
		Mode:            cfg.Server.Mode,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		LoginRatePerMin: cfg.Auth.LoginRatePerMin,
		LoginBurst:      cfg.Auth.LoginBurst,
		Auth:            authSvc,
		Reservations:    reservationSvc,
		Tokens:          tokens,
		Metrics:         m,
		Logger:          &logger,
	})

	backupLog := logger.With().Str("component", "backup").Logger()
	backups := database.NewBackupService(db, database.BackupConfig{
		Enabled:       cfg.Backup.Enabled,
		Interval:      time.Duration(cfg.Backup.IntervalHours) * time.Hour,
		StoragePath:   cfg.Backup.Path,
		RetentionDays: cfg.Backup.RetentionDays,
	}, &backupLog)
	go backups.Start(ctx)

	if cfg.Reminders.Enabled {
		remindLog := logging.NewKV(logger, "reminders")
		senderCfg := reminders.DefaultReminderSenderConfig()
		senderCfg.Pacing.PerSecond = cfg.Reminders.SendsPerSecond
		remindMetrics := reminders.NewMetrics(metrics.Namespace, reg)
		sender := reminders.NewReminderSender(notifications, db, senderCfg, remindMetrics, remindLog)

		reminderSvc := reminders.NewService(&reminders.Config{
			CheckInterval:              time.Duration(cfg.Reminders.IntervalMinutes) * time.Minute,
			LeadTime:                   cfg.ReminderLead(),
			MaxConcurrentNotifications: cfg.Reminders.MaxConcurrent,
			Location:                   loc,
		}, db, sender, remindMetrics, remindLog)
		reminderSvc.Start(ctx)
		defer reminderSvc.Stop()

		digest := reminders.NewScheduler(reminders.SchedulerConfig{
			Location:  loc,
			DailyHour: cfg.Reminders.DigestHour,
		}, listing, sender, logging.NewKV(logger, "digest"))
		digest.Start(ctx)
		defer digest.Stop()
	}

	if cfg.Audit.Enabled {
		auditSvc := audit.NewService(&audit.Config{
			OutputDir:  cfg.Audit.OutputDir,
			DayOfMonth: cfg.Audit.DayOfMonth,
			Hour:       cfg.Audit.Hour,
			Location:   loc,
		}, db, nil, notifications, logging.NewKV(logger, "audit"))
		auditSvc.Start(ctx)
		defer auditSvc.Stop()
	}

	go trackReservationCounts(ctx, db, m, &logger)
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, listing, &logger)
	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, reg, &logger)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error().Err(err).Msg("http shutdown")
		}
		// Requests are finished; let their notifications go out.
		_ = subscription.Drain(ctxShutdown)
	}()

	logger.Info().Str("address", cfg.Server.Address).Msg("reservation API started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("http server error")
		stop()
	}
	<-stopped
	logger.Info().Msg("shutting down")
}

func newNotifier(cfg *config.Config, db *database.DB, logger zerolog.Logger) notifier {
	token := cfg.Telegram.BotToken
	if token == "" || token == "YOUR_BOT_TOKEN_HERE" {
		logger.Warn().Msg("telegram.bot_token not set; notifications are logged only")
		return notify.NewLog(logger)
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error().Err(err).Msg("telegram bot init failed; notifications are logged only")
		return notify.NewLog(logger)
	}
	bot.Debug = cfg.Telegram.Debug
	logger.Info().Str("bot", bot.Self.UserName).Msg("telegram notifications enabled")
	return notify.NewTelegram(bot, db, db, cfg.Telegram.AdminChatIDs, logger)
}

func trackReservationCounts(ctx context.Context, db *database.DB, m *metrics.Metrics, logger *zerolog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		counts, err := db.CountReservationsByStatus(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("count reservations")
		} else {
			m.SetReservationCounts(counts)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, cache *repository.CachedRepository, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.Ping(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if err := cache.Ping(ctxPing); err != nil {
			http.Error(w, "redis not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	serve(ctx, port, mux, "health", logger)
}

func startMetricsServer(ctx context.Context, port int, reg *prometheus.Registry, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	serve(ctx, port, mux, "metrics", logger)
}

func serve(ctx context.Context, port int, handler http.Handler, name string, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Str("server", name).Msg("server error")
	}
}
