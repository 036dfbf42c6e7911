package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/producthunt/apiserver/config"
	"github.com/producthunt/apiserver/internal/mq"
	"github.com/producthunt/apiserver/internal/notify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// workerCmd consumes product events from the broker and logs them. It is the
// hook point for out-of-process consumers such as mailers or search indexers.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume product events from the message broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg)
		defer func() { _ = logger.Sync() }()

		if cfg.MQ.Backend == mq.BackendMemory {
			return errors.New("worker needs a shared broker, MQ_BACKEND=memory only works in-process")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("MQ_BACKEND is required")
		}
		defer func() { _ = queue.Close() }()

		logger.Info("consuming events",
			zap.String("backend", queue.Name()),
			zap.String("channel", cfg.MQ.EventsChannel),
		)
		err = queue.Subscribe(ctx, cfg.MQ.EventsChannel, logEvent(logger))
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func logEvent(logger *zap.Logger) mq.Handler {
	return func(_ context.Context, msg mq.Message) error {
		event, err := notify.DecodeEvent(msg)
		if err != nil {
			// Undecodable payloads are dropped rather than redelivered forever.
			logger.Warn("dropping malformed event", zap.String("message_id", msg.ID), zap.Error(err))
			return nil
		}
		fields := []zap.Field{
			zap.String("message_id", msg.ID),
			zap.String("type", string(event.Type)),
			zap.String("product_id", event.ProductID),
			zap.String("actor", event.Actor),
			zap.Time("at", event.At),
		}
		if event.Status != "" {
			fields = append(fields, zap.String("status", event.Status))
		}
		if event.VoteCount != nil {
			fields = append(fields, zap.Int("vote_count", *event.VoteCount))
		}
		logger.Info("event", fields...)
		return nil
	}
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
