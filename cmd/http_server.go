package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/veyra-chat/veyra/internal"
	"github.com/veyra-chat/veyra/internal/auth"
	"github.com/veyra-chat/veyra/internal/channel"
	channelpg "github.com/veyra-chat/veyra/internal/channel/postgres"
	"github.com/veyra-chat/veyra/internal/message"
	messagepg "github.com/veyra-chat/veyra/internal/message/postgres"
	"github.com/veyra-chat/veyra/internal/role"
	rolepg "github.com/veyra-chat/veyra/internal/role/postgres"
	"github.com/veyra-chat/veyra/internal/server"
	serverpg "github.com/veyra-chat/veyra/internal/server/postgres"
	"github.com/veyra-chat/veyra/internal/transport"
	"github.com/veyra-chat/veyra/internal/transport/rest"
	"github.com/veyra-chat/veyra/internal/user"
	userpg "github.com/veyra-chat/veyra/internal/user/postgres"
	"github.com/veyra-chat/veyra/internal/voice"
	"github.com/veyra-chat/veyra/internal/ws"
	"github.com/veyra-chat/veyra/pkg/logger"
	"github.com/veyra-chat/veyra/pkg/ratelimit"
)

const (
	limiterSweepInterval  = time.Minute
	resolverTTL           = 30 * time.Second
	resolverSweepInterval = time.Minute
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server and the gateway`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

// lateResolver breaks the construction cycle between the role service and the
// permission resolver: the resolver reads roles, the role service invalidates
// the resolver.
type lateResolver struct {
	r *channel.Resolver
}

func (l *lateResolver) InvalidateUser(userID string) {
	if l.r != nil {
		l.r.InvalidateUser(userID)
	}
}

func (l *lateResolver) InvalidateAll() {
	if l.r != nil {
		l.r.InvalidateAll()
	}
}

func startHTTPServer() {
	cfg, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Env)
	lg := logger.L()

	db, err := initDB(cfg.Database)
	if err != nil {
		lg.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		lg.Error("failed to access database pool", "error", err)
		os.Exit(1)
	}

	loginLimiter := ratelimit.New(cfg.RateLimit.LoginMaxAttempts,
		cfg.RateLimit.LoginWindow, cfg.RateLimit.LoginCooldown, limiterSweepInterval)
	messageLimiter := ratelimit.New(cfg.RateLimit.MessageMaxMessages,
		cfg.RateLimit.MessageWindow, cfg.RateLimit.MessageCooldown, limiterSweepInterval)

	hub := ws.NewHub(lg)

	userRepo := userpg.NewRepository(db)
	serverRepo := serverpg.NewRepository(db)
	roleRepo := rolepg.NewRepository(db)
	channelRepo := channelpg.NewRepository(db)
	messageRepo := messagepg.NewRepository(db)

	late := &lateResolver{}
	roleService := role.NewService(roleRepo, serverRepo, hub, late, lg)
	resolver := channel.NewResolver(roleService, channelRepo, resolverTTL, resolverSweepInterval)
	late.r = resolver

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret, cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration, cfg.Security.RefreshTokenDuration)
	authService := auth.NewService(userRepo, tokens, lg)

	userService := user.NewService(userRepo, hub, lg)
	serverService := server.NewService(serverRepo, roleService, hub, resolver, lg)
	channelService := channel.NewService(channelRepo, hub, resolver, lg)
	messageService := message.NewService(messageRepo, hub, lg)
	voiceService := voice.NewService(resolver, channelService, hub, lg)

	hub.OnFirstConnect = userService.HandleConnect
	hub.OnLastDisconnect = func(userID string) {
		voiceService.HandleDisconnect(userID)
		userService.HandleDisconnect(userID)
	}

	gateway := ws.NewGateway(hub, authService, serverService, cfg.Gateway, cfg.Server.AllowedOrigins, lg)
	gateway.OnPresence = func(userID, status string) {
		if err := userService.SetManualStatus(context.Background(), userID, status); err != nil {
			lg.Warn("presence update rejected", "user_id", userID, "status", status, "error", err)
		}
	}

	base := transport.NewBaseHandler(lg)
	handlers := rest.Handlers{
		Auth:    auth.NewHandler(base, authService, loginLimiter),
		User:    user.NewHandler(base, userService),
		Server:  server.NewHandler(base, serverService),
		Role:    role.NewHandler(base, roleService),
		Channel: channel.NewHandler(base, channelService),
		Message: message.NewHandler(base, messageService, messageLimiter),
		Voice:   voice.NewHandler(base, voiceService),
		Gateway: gateway,
		Hub:     hub,
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, sqlDB, handlers, serverService, resolver, lg)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- srv.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		hub.Shutdown()
		loginLimiter.Close()
		messageLimiter.Close()
		resolver.Close()
		if err := sqlDB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

// initDB opens the gorm connection and tunes the underlying pool.
func initDB(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.Source), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access db pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
