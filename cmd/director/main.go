package main

import (
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/danielpatrickdp/adaptive-director/internal/config"
	"github.com/danielpatrickdp/adaptive-director/internal/logging"
	"github.com/danielpatrickdp/adaptive-director/internal/rpc"
	"github.com/danielpatrickdp/adaptive-director/internal/state"
)

// #region main
func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	envFile := flag.String("env", ".env", "dotenv file loaded before the environment")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	store, err := state.NewStore(cfg.Store.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("db", cfg.Store.Path).Msg("failed to open store")
	}
	defer store.Close()

	if cfg.Server.JWTSecret == "" {
		logger.Warn().Msg("no JWT secret configured, tokens will not survive a restart")
	}
	tokens := rpc.NewTokens(cfg.Server.JWTSecret, cfg.Server.TokenTTL)

	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.Server.Addr).Msg("failed to listen")
	}

	srv := grpc.NewServer(grpc.UnaryInterceptor(rpc.AuthInterceptor(tokens, logger)))
	rpc.RegisterDirectorServer(srv, rpc.NewServer(store, tokens, cfg.Director, rpc.WithLogger(logger)))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-stop
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		srv.GracefulStop()
	}()

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Str("db", cfg.Store.Path).
		Float64("target_win_rate", cfg.Director.TargetWinRate).
		Int64("seed", cfg.Director.Seed).
		Msg("adaptive director ready")

	if err := srv.Serve(lis); err != nil {
		logger.Fatal().Err(err).Msg("serve")
	}
}

// #endregion main
