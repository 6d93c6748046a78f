package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/chainhr/payportal/config"
	"github.com/chainhr/payportal/internal/tasks"
	"github.com/chainhr/payportal/storage"
	"github.com/chainhr/payportal/storage/postgres"
	"github.com/chainhr/payportal/upstream"
)

func main() {
	cfg, err := config.ReadConfig("config")
	if err != nil {
		panic(err)
	}

	logger := logrus.WithField("service", "worker").Logger

	db, err := postgres.NewPostgresBackend(cfg.Database.DSN)
	if err != nil {
		logger.Fatalf("fail to connect to database, err: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Errorf("fail to close database, err: %v", err)
		}
	}()

	redisAddr := cfg.Redis.Host + ":" + cfg.Redis.Port
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisAddr,
			Username: cfg.Redis.User,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				tasks.QueueRecheck: 10,
			},
		},
	)

	logger.WithFields(logrus.Fields{
		"redis": redisAddr,
	}).Info("Starting recheck worker")

	worker := &recheckWorker{
		db:       db,
		upstream: upstream.NewClient(cfg, logger),
		logger:   logger,
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypePaymentRecheck, worker.HandlePaymentRecheck)

	if err := srv.Run(mux); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}

type recheckWorker struct {
	db       storage.DatabaseStorage
	upstream *upstream.Client
	logger   *logrus.Logger
}

// HandlePaymentRecheck asks the backend to re-derive the payroll status
// from chain state, then settles the local journal row. The task retries
// until the backend reaches a terminal status; a paid payroll must never be
// left with a dangling BROADCAST attempt.
func (w *recheckWorker) HandlePaymentRecheck(ctx context.Context, t *asynq.Task) error {
	var p tasks.PaymentRecheckPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	w.logger.WithFields(logrus.Fields{
		"payroll_id": p.PayrollID,
		"attempt_id": p.AttemptID,
		"tx_hash":    p.TxHash,
	}).Info("Rechecking payment")

	status, err := w.upstream.RecheckPayment(ctx, p.PayrollID)
	if err != nil {
		if upstream.IsPermissionDenied(err) {
			return fmt.Errorf("recheck rejected for payroll %d: %v: %w", p.PayrollID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("fail to recheck payroll %d, err: %w", p.PayrollID, err)
	}

	if !status.Terminal() {
		return fmt.Errorf("payroll %d still %s, retrying", p.PayrollID, status)
	}

	if err := w.db.MarkAcknowledged(ctx, p.AttemptID); err != nil {
		return fmt.Errorf("fail to acknowledge attempt %s, err: %w", p.AttemptID, err)
	}

	w.logger.WithFields(logrus.Fields{
		"payroll_id": p.PayrollID,
		"status":     status.String(),
	}).Info("Payment reconciled")
	return nil
}
