package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	pkg "git.solsynth.dev/hypernet/channels/pkg/internal"
	"git.solsynth.dev/hypernet/channels/pkg/internal/database"
	"git.solsynth.dev/hypernet/channels/pkg/internal/gateway"
	"git.solsynth.dev/hypernet/channels/pkg/internal/grpc"
	"git.solsynth.dev/hypernet/channels/pkg/internal/http"
	"git.solsynth.dev/hypernet/channels/pkg/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")
	viper.SetDefault("bind", "0.0.0.0:8447")
	viper.SetDefault("grpc_bind", "0.0.0.0:7447")
	viper.SetDefault("moderation.default_mute", "5m")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}
	if viper.GetBool("debug.enabled") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if cost := viper.GetInt("moderation.bcrypt_cost"); cost > 0 {
		services.Credentials = services.BcryptVerifier{Cost: cost}
	}

	// Connect to database
	if err := database.NewSource(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Gateway relay
	var rdb *redis.Client
	if addr := viper.GetString("redis.addr"); len(addr) > 0 {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		})
	}
	hub := gateway.NewHub(rdb)
	if err := hub.StartRelay(ctx); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when subscribing the gateway relay.")
	}

	// Server
	server := http.NewServer(hub)
	go server.Listen()

	grpcServer := grpc.NewGrpc()
	grpcServer.SetServing(true)
	go func() {
		if err := grpcServer.Listen(); err != nil {
			log.Fatal().Err(err).Msg("An error occurred when starting grpc server...")
		}
	}()

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	if _, err := quartz.AddFunc("@every 60m", services.DoAutoDatabaseCleanup); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when scheduling database cleanup.")
	}
	quartz.Start()

	// Messages
	log.Info().Msgf("Channels v%s is started...", pkg.AppVersion)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msgf("Channels v%s is quitting...", pkg.AppVersion)

	grpcServer.Stop()
	if err := server.Shutdown(); err != nil {
		log.Warn().Err(err).Msg("An error occurred when shutting down server...")
	}
	<-quartz.Stop().Done()
	cancel()
	if rdb != nil {
		_ = rdb.Close()
	}
	if raw, err := database.C.DB(); err == nil {
		_ = raw.Close()
	}
}
