package main

import (
	"fmt"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/chainhr/payportal/api"
	"github.com/chainhr/payportal/chain"
	"github.com/chainhr/payportal/config"
	"github.com/chainhr/payportal/storage"
	"github.com/chainhr/payportal/storage/postgres"
	"github.com/chainhr/payportal/upstream"
)

func main() {
	cfg, err := config.ReadConfig("config")
	if err != nil {
		panic(err)
	}

	logger := logrus.WithField("service", "payportal").Logger

	sdClient, err := statsd.New(fmt.Sprintf("%s:%s", cfg.Datadog.Host, cfg.Datadog.Port))
	if err != nil {
		panic(err)
	}

	redisStorage, err := storage.NewRedisStorage(cfg)
	if err != nil {
		panic(err)
	}

	redisOptions := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Username: cfg.Redis.User,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	client := asynq.NewClient(redisOptions)
	defer func() {
		if err := client.Close(); err != nil {
			fmt.Println("fail to close asynq client,", err)
		}
	}()

	db, err := postgres.NewPostgresBackend(cfg.Database.DSN)
	if err != nil {
		logger.Fatalf("fail to connect to database, err: %v", err)
	}

	wallet, err := chain.NewHotWallet(cfg, logger)
	if err != nil {
		logger.Fatalf("fail to initialize hot wallet, err: %v", err)
	}

	receipts, err := storage.NewReceiptStorage(cfg)
	if err != nil {
		logger.Fatalf("fail to initialize receipt storage, err: %v", err)
	}

	upstreamClient := upstream.NewClient(cfg, logger)

	server := api.NewServer(
		cfg,
		redisStorage,
		client,
		sdClient,
		upstreamClient,
		wallet,
		db,
		receipts,
	)
	if err := server.StartServer(); err != nil {
		panic(err)
	}
}
