/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/inkpost/apiserver/internal/mq"
	"github.com/inkpost/apiserver/types"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect post lifecycle events",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Log post events from the configured broker until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("MQ_BACKEND is required")
		}
		defer broker.Close()

		logger.Info("watching post events", slog.String("channel", cfg.EventsChannel))
		err = broker.Subscribe(ctx, cfg.EventsChannel, func(ctx context.Context, msg mq.Message) error {
			var event types.PostEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				// Malformed payloads are acknowledged so they are not redelivered forever.
				logger.Warn("dropping malformed event", slog.String("id", msg.ID), slog.Any("error", err))
				return nil
			}
			logger.Info("post event",
				slog.String("id", msg.ID),
				slog.String("type", string(event.Type)),
				slog.String("post_id", event.PostID.String()),
				slog.String("author_id", event.AuthorID.String()),
				slog.Time("occurred_at", event.OccurredAt),
			)
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
	eventsCmd.AddCommand(eventsWatchCmd)
}
