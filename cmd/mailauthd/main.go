// Command mailauthd serves the mailauth HTTP API.
//
// Configuration is read from mailauthd.yaml (current directory or
// /etc/mailauthd), with MAILAUTHD_* environment variables taking
// precedence. The user directory backend is selected at startup:
// memory, redis, postgres, or mongo.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mailauth-io/mailauth"
	"github.com/mailauth-io/mailauth/directory/memdir"
	"github.com/mailauth-io/mailauth/directory/mongodir"
	"github.com/mailauth-io/mailauth/directory/pgdir"
	"github.com/mailauth-io/mailauth/directory/redisdir"
	"github.com/mailauth-io/mailauth/httpapi"
	"github.com/mailauth-io/mailauth/jwt"
)

type serverConfig struct {
	Listen    string `mapstructure:"listen"`
	BaseURL   string `mapstructure:"base_url"`
	JWTSecret string `mapstructure:"jwt_secret"`

	ConfirmTTL string `mapstructure:"confirm_ttl"`
	SessionTTL string `mapstructure:"session_ttl"`

	Directory struct {
		Backend  string `mapstructure:"backend"`
		Redis    string `mapstructure:"redis_addr"`
		Postgres string `mapstructure:"postgres_dsn"`
		MongoURI string `mapstructure:"mongo_uri"`
		MongoDB  string `mapstructure:"mongo_db"`
	} `mapstructure:"directory"`
}

var rootCmd = &cobra.Command{
	Use:   "mailauthd",
	Short: "Passwordless email authentication server",
	Long: `mailauthd serves the mailauth login-link and login-code flows over HTTP.
It issues JWTs against a pluggable user directory (memory, Redis, PostgreSQL,
or MongoDB) and hands verification emails to a configurable notifier.`,
	RunE: runServer,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("listen", ":8080", "Address to serve HTTP on")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
}

func loadConfig(cmd *cobra.Command) (*serverConfig, error) {
	viper.Reset()

	viper.SetEnvPrefix("MAILAUTHD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("listen", ":8080")
	viper.SetDefault("directory.backend", "memory")

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("mailauthd")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/mailauthd")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg serverConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if listen, _ := cmd.Flags().GetString("listen"); cmd.Flags().Changed("listen") {
		cfg.Listen = listen
	}
	return &cfg, nil
}

func buildDirectory(ctx context.Context, cfg *serverConfig, logger *zap.Logger) (mailauth.UserDirectory, func(), error) {
	switch cfg.Directory.Backend {
	case "", "memory":
		logger.Warn("using in-memory user directory; users are lost on restart")
		return memdir.New(), func() {}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Directory.Redis})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return redisdir.New(client, ""), func() { _ = client.Close() }, nil

	case "postgres":
		dir, err := pgdir.Open(cfg.Directory.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return dir, func() { _ = dir.Close() }, nil

	case "mongo":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Directory.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("mongo connect: %w", err)
		}
		dir, err := mongodir.NewDirectory(client, mongodir.Config{DatabaseName: cfg.Directory.MongoDB})
		if err != nil {
			return nil, nil, err
		}
		return dir, func() { _ = client.Disconnect(context.Background()) }, nil

	default:
		return nil, nil, fmt.Errorf("unknown directory backend %q", cfg.Directory.Backend)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	directory, closeDirectory, err := buildDirectory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDirectory()

	engineCfg := mailauth.DefaultConfig()
	engineCfg.API.BaseURL = cfg.BaseURL
	engineCfg.JWT.Secret = []byte(cfg.JWTSecret)
	if cfg.ConfirmTTL != "" {
		if engineCfg.JWT.ConfirmTTL, err = jwt.ParseTTL(cfg.ConfirmTTL); err != nil {
			return fmt.Errorf("confirm_ttl: %w", err)
		}
	}
	if cfg.SessionTTL != "" {
		if engineCfg.JWT.SessionTTL, err = jwt.ParseTTL(cfg.SessionTTL); err != nil {
			return fmt.Errorf("session_ttl: %w", err)
		}
	}

	engine, err := mailauth.New().
		WithConfig(engineCfg).
		WithDirectory(directory).
		WithNotifier(func(_ context.Context, n mailauth.Notification) error {
			// Stand-in until an SMTP notifier is wired in deployment.
			logger.Info("authentication email",
				zap.String("email", n.Email),
				zap.String("url", n.VerificationURL),
				zap.String("code", n.LoginCode))
			return nil
		}).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           httpapi.NewRouter(engine, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving", zap.String("addr", cfg.Listen), zap.String("directory", cfg.Directory.Backend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
