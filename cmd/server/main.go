package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/npezzotti/go-karaoke/internal/api"
	"github.com/npezzotti/go-karaoke/internal/config"
	"github.com/npezzotti/go-karaoke/internal/database"
	"github.com/npezzotti/go-karaoke/internal/party"
	"github.com/npezzotti/go-karaoke/internal/server"
	"github.com/npezzotti/go-karaoke/internal/stats"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	allowedOrigins stringSliceFlag
	keepAlive      time.Duration
	runMigrations  bool
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS and websockets")
	flag.DurationVar(&keepAlive, "keepalive", config.DefaultKeepAliveInterval, "interval between live stream keep-alive frames")
	flag.BoolVar(&runMigrations, "migrate", true, "apply database migrations on start")
	flag.Parse()

	logger := log.New(os.Stderr, "[karaoke] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins, keepAlive)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgKaraokeRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if runMigrations {
		if err := dbConn.Migrate(); err != nil {
			logger.Fatal("db migrate:", err)
		}
	}

	statsUpdater := stats.NewStatsUpdater("karaoke-stats")
	statsUpdater.Run()
	defer statsUpdater.Stop()

	hub := server.NewHub(logger, statsUpdater)
	hasher := party.BcryptHasher{}
	svc := party.NewService(logger, dbConn, hub, hasher)
	transport := server.NewTransport(logger, hub, svc.LiveSnapshot, cfg.KeepAliveInterval)

	srv := api.NewKaraokeApp(logger, dbConn, svc, transport, hasher, statsUpdater.Handler, cfg)
	// open streams hold Shutdown until their subscribers are closed
	srv.OnShutdown(hub.Shutdown)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
