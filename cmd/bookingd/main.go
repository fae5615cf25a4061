// Command bookingd runs the reservation-and-ledger engine behind an HTTP API.
package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/hivedesk/hivedesk/internal/eventbus"
	"github.com/hivedesk/hivedesk/internal/gateway/paystack"
	"github.com/hivedesk/hivedesk/internal/httpapi"
	"github.com/hivedesk/hivedesk/internal/store/gormstore"
	"github.com/hivedesk/hivedesk/pkg/booking"
	"github.com/hivedesk/hivedesk/pkg/cancellation"
	"github.com/hivedesk/hivedesk/pkg/escrow"
	"github.com/hivedesk/hivedesk/pkg/events"
	"github.com/hivedesk/hivedesk/pkg/ledger"
	"github.com/hivedesk/hivedesk/pkg/payment"
	"github.com/hivedesk/hivedesk/pkg/reservation"
)

const (
	flagDatabaseURL       = "database-url"
	flagListenAddr        = "listen-addr"
	flagRedisAddr         = "redis-addr"
	flagPaystackSecretKey = "paystack-secret-key"
	flagAllowedOrigins    = "allowed-origins"

	configKeyDatabaseURL       = "database_url"
	configKeyListenAddr        = "listen_addr"
	configKeyRedisAddr         = "redis_addr"
	configKeyPaystackSecretKey = "paystack_secret_key"
	configKeyAllowedOrigins    = "allowed_origins"

	defaultDatabaseURL = "sqlite:///tmp/hivedesk.db"
	defaultListenAddr  = ":8080"
)

type runtimeConfig struct {
	DatabaseURL       string
	ListenAddr        string
	RedisAddr         string
	PaystackSecretKey string
	AllowedOrigins    []string
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "bookingd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "bookingd",
		Short:         "Coworking reservation and ledger engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "PostgreSQL or SQLite connection string")
	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagRedisAddr, "", "Redis address for the event bus (empty logs events instead)")
	cmd.Flags().String(flagPaystackSecretKey, "", "Paystack secret key")
	cmd.Flags().StringSlice(flagAllowedOrigins, nil, "CORS allowed origins")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	bindings := map[string]string{
		configKeyDatabaseURL:       "DATABASE_URL",
		configKeyListenAddr:        "LISTEN_ADDR",
		configKeyRedisAddr:         "REDIS_ADDR",
		configKeyPaystackSecretKey: "PAYSTACK_SECRET_KEY",
		configKeyAllowedOrigins:    "ALLOWED_ORIGINS",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return err
		}
	}
	flags := map[string]string{
		configKeyDatabaseURL:       flagDatabaseURL,
		configKeyListenAddr:        flagListenAddr,
		configKeyRedisAddr:         flagRedisAddr,
		configKeyPaystackSecretKey: flagPaystackSecretKey,
		configKeyAllowedOrigins:    flagAllowedOrigins,
	}
	for key, flag := range flags {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = viper.GetString(configKeyDatabaseURL)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	cfg.ListenAddr = viper.GetString(configKeyListenAddr)
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	cfg.RedisAddr = viper.GetString(configKeyRedisAddr)
	cfg.PaystackSecretKey = viper.GetString(configKeyPaystackSecretKey)
	cfg.AllowedOrigins = viper.GetStringSlice(configKeyAllowedOrigins)
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gormDB, cleanup, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer func() { _ = cleanup() }()

	store := gormstore.New(gormDB)
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	publisher, closeBus := newPublisher(cfg, logger)
	defer closeBus()

	services, err := buildServices(store, publisher, cfg, logger)
	if err != nil {
		return err
	}

	sweeper := reservation.NewSweeper(services.Reservations, reservation.DefaultSweepInterval, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	server := httpapi.NewServer(httpapi.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: cfg.AllowedOrigins,
	}, services, logger)
	return server.Run(ctx)
}

func newPublisher(cfg *runtimeConfig, logger *zap.Logger) (events.Publisher, func()) {
	if cfg.RedisAddr == "" {
		return eventbus.NewLogPublisher(logger), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	publisher := eventbus.NewRedisPublisher(client, eventbus.DefaultChannel, logger)
	return publisher, func() { _ = client.Close() }
}

func buildServices(store *gormstore.Store, publisher events.Publisher, cfg *runtimeConfig, logger *zap.Logger) (httpapi.Services, error) {
	ledgerService, err := ledger.NewService(store, ledger.WithEventPublisher(publisher))
	if err != nil {
		return httpapi.Services{}, fmt.Errorf("ledger service init: %w", err)
	}
	reservationService, err := reservation.NewService(store,
		reservation.WithEventPublisher(publisher),
		reservation.WithLogger(logger))
	if err != nil {
		return httpapi.Services{}, fmt.Errorf("reservation service init: %w", err)
	}
	escrowService, err := escrow.NewService(store, ledgerService,
		escrow.WithEventPublisher(publisher),
		escrow.WithLogger(logger))
	if err != nil {
		return httpapi.Services{}, fmt.Errorf("escrow service init: %w", err)
	}
	bookingService, err := booking.NewService(store, escrowService,
		booking.WithEventPublisher(publisher),
		booking.WithLogger(logger))
	if err != nil {
		return httpapi.Services{}, fmt.Errorf("booking service init: %w", err)
	}
	cancellationService, err := cancellation.NewService(store, escrowService,
		cancellation.WithEventPublisher(publisher),
		cancellation.WithLogger(logger))
	if err != nil {
		return httpapi.Services{}, fmt.Errorf("cancellation service init: %w", err)
	}
	paymentService, err := payment.NewService(store, ledgerService, paystack.New(cfg.PaystackSecretKey),
		payment.WithEventPublisher(publisher),
		payment.WithLogger(logger))
	if err != nil {
		return httpapi.Services{}, fmt.Errorf("payment service init: %w", err)
	}

	return httpapi.Services{
		Reservations:  reservationService,
		Bookings:      bookingService,
		Ledger:        ledgerService,
		Escrow:        escrowService,
		Cancellations: cancellationService,
		Payments:      paymentService,
	}, nil
}

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, err
	}

	var db *gorm.DB
	switch driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(sqlitePath), &gorm.Config{})
	default:
		return nil, nil, fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		parsed, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := parsed.Path
		if path == "" {
			path = parsed.Host
		}
		if path == "" || path == "/" {
			path = "hivedesk.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return "sqlite", sqlitePath, err
	}
	// Treat everything else as a direct sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return "sqlite", sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}
