package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"restaurant-orders/internal/services/order"
	"restaurant-orders/internal/services/report"
)

func newReportCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Query orders and revenue",
	}
	cmd.AddCommand(newRevenueCmd(opts))
	cmd.AddCommand(newOrdersCmd(opts))
	return cmd
}

func newRevenueCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "revenue",
		Short: "Sum the totals of paid orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load("report")
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			store, closeStore, err := openStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer closeStore()

			revenue, err := report.NewService(store, log).Revenue(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderRevenue(revenue))
			return nil
		},
	}
}

func newOrdersCmd(opts *rootOptions) *cobra.Command {
	var table, status string

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := order.ParseListFilter(table, status)
			if err != nil {
				return err
			}

			cfg, log, err := opts.load("report")
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			store, closeStore, err := openStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer closeStore()

			orders, err := report.NewService(store, log).ListOrders(cmd.Context(), filter)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderOrders("Orders", orders))
			return nil
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "only orders for this table number")
	cmd.Flags().StringVar(&status, "status", "", "only orders in this status (pending, ready, paid)")
	return cmd
}
