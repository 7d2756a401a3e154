package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"crmbot/internal/config"
	"crmbot/internal/delivery/httpd"
	"crmbot/internal/delivery/telegram"
	"crmbot/internal/repository"
	"crmbot/internal/service"
	"crmbot/internal/service/integration"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

type App struct {
	server       *http.Server
	bot          *telegram.Bot
	handler      *telegram.Handler
	logger       zerolog.Logger
	config       *config.Config
	db           *sql.DB
	eventsClient integration.EventsClient
}

func New(cfg *config.Config, log zerolog.Logger, db *sql.DB) (*App, error) {
	// Интеграционные клиенты
	weatherClient := integration.NewWeatherClient(
		cfg.Services.Weather.URL,
		cfg.Services.Weather.APIKey,
		cfg.Services.Weather.Timeout,
		cfg.Services.Weather.RetryCount,
		cfg.Services.Weather.RetryDelay,
		log,
	)

	currencyClient := integration.NewCurrencyClient(
		cfg.Services.Currency.URL,
		cfg.Services.Currency.APIKey,
		cfg.Services.Currency.Timeout,
		cfg.Services.Currency.RetryCount,
		cfg.Services.Currency.RetryDelay,
		log,
	)

	eventsClient, err := integration.NewEventsClient(
		cfg.RabbitMQ.URL,
		cfg.RabbitMQ.Exchange,
		log,
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create RabbitMQ client")
		// Работаем без событий, это допустимо
		eventsClient = nil
	}

	// Репозитории
	userRepo := repository.NewUserRepository(db, log)
	streamRepo := repository.NewStreamRepository(db, log)
	sessionRepo := repository.NewSessionRepository(db, log)
	attendanceRepo := repository.NewAttendanceRepository(db, log)
	homeworkRepo := repository.NewHomeworkRepository(db, log)
	broadcastRepo := repository.NewBroadcastRepository(db, log)

	// Сервисы
	userService := service.NewUserService(userRepo, eventsClient, log)
	scheduleService := service.NewScheduleService(sessionRepo, streamRepo, userRepo, log)
	attendanceService := service.NewAttendanceService(attendanceRepo, sessionRepo, log)
	homeworkService := service.NewHomeworkService(homeworkRepo, attendanceRepo, sessionRepo, log)
	broadcastService := service.NewBroadcastService(
		broadcastRepo,
		userRepo,
		eventsClient,
		cfg.Broadcast.BatchSize,
		cfg.Broadcast.BatchDelay,
		log,
	)

	// Телеграм
	tgHandler := telegram.NewHandler(
		userService,
		scheduleService,
		attendanceService,
		homeworkService,
		broadcastService,
		weatherClient,
		currencyClient,
		cfg.Wizard,
		log,
	)

	bot, err := telegram.NewBot(cfg.Telegram, tgHandler, log)
	if err != nil {
		return nil, err
	}

	// Служебный HTTP API
	handler := httpd.NewHandler(
		broadcastService,
		attendanceService,
		scheduleService,
		bot,
		log,
	)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server:       server,
		bot:          bot,
		handler:      tgHandler,
		logger:       log,
		config:       cfg,
		db:           db,
		eventsClient: eventsClient,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.handler.StartJanitor(ctx)

	go func() {
		a.logger.Info().Msgf("Admin API listening on %s", a.config.Server.Address)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error().Err(err).Msg("Admin API server failed")
		}
	}()

	a.logger.Info().Msg("Starting Telegram polling")
	return a.bot.Run(ctx)
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down...")

	if a.eventsClient != nil {
		if err := a.eventsClient.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	return a.server.Shutdown(ctx)
}
