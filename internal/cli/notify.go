package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"restaurant-orders/internal/messaging"
	"restaurant-orders/internal/services/notification"
)

func newNotifyCmd(opts *rootOptions) *cobra.Command {
	var prefetch int

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Print order events published to RabbitMQ",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load("notification-subscriber")
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			conn, err := messaging.New(cfg, log)
			if err != nil {
				return err
			}
			consumer := messaging.NewConsumer(conn, log, "notification-subscriber", prefetch)

			return notification.NewSubscriber(consumer, cmd.OutOrStdout(), log).Start(ctx)
		},
	}
	cmd.Flags().IntVar(&prefetch, "prefetch", 10, "RabbitMQ prefetch count")
	return cmd
}
