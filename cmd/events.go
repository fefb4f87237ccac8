/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tasklist/apiserver/config"
	"github.com/tasklist/apiserver/internal/mq"
	"github.com/tasklist/apiserver/internal/observability"
	"github.com/tasklist/apiserver/internal/services"
	"go.uber.org/zap"
)

// eventsCmd represents the events command.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect task lifecycle events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log task events from the configured message queue until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		logger, err := observability.NewLogger(cfg.Env, cfg.LogLevel)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("MQ_BACKEND must be rabbitmq or pubsub to tail events")
		}
		defer queue.Close()

		logger.Info("tailing task events",
			zap.String("backend", cfg.MQ.Backend),
			zap.String("channel", cfg.MQ.TaskEventsChannel))

		err = queue.Subscribe(ctx, cfg.MQ.TaskEventsChannel, func(_ context.Context, msg mq.Message) error {
			event, err := services.DecodeTaskEvent(msg)
			if err != nil {
				// a malformed payload will never decode; ack it
				logger.Warn("dropping undecodable event", zap.String("message_id", msg.ID), zap.Error(err))
				return nil
			}
			logger.Info("task event",
				zap.String("id", event.ID),
				zap.String("type", string(event.Type)),
				zap.Int("task_id", event.TaskID),
				zap.Int("owner_id", event.OwnerID),
				zap.Time("occurred_at", event.OccurredAt))
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
