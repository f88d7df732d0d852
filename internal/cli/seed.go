package cli

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"restaurant-orders/internal/models"
	"restaurant-orders/internal/services/order"
)

var demoMenu = []struct {
	name  string
	price string
}{
	{"Coffee", "60.00"},
	{"Tea", "10.00"},
	{"Compote", "10.00"},
	{"Soup", "20.00"},
	{"Sandwich", "35.00"},
	{"Fried eggs", "15.00"},
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var (
		orders int
		seed   uint64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with a demo menu and random orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			if orders < 0 {
				return fmt.Errorf("--orders must not be negative")
			}

			cfg, log, err := opts.load("seed")
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			store, closeStore, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeStore()

			service := order.NewService(store, nil, log, cfg.Orders.MaxRetries)

			menu, err := seedMenu(ctx, service)
			if err != nil {
				return err
			}

			rng := rand.New(rand.NewPCG(seed, seed))
			for i := 0; i < orders; i++ {
				if _, err := service.CreateOrder(ctx, randomOrder(rng, menu)); err != nil {
					return fmt.Errorf("failed to create order %d: %w", i+1, err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d menu items and %d orders\n", len(menu), orders)
			return nil
		},
	}
	cmd.Flags().IntVar(&orders, "orders", 20, "number of random orders to create")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	return cmd
}

// seedMenu creates the demo menu items that do not exist yet
func seedMenu(ctx context.Context, service *order.Service) ([]models.MenuItem, error) {
	menu := make([]models.MenuItem, 0, len(demoMenu))
	for _, demo := range demoMenu {
		existing, err := service.ListMenuItems(ctx, demo.name)
		if err != nil {
			return nil, err
		}

		var found *models.MenuItem
		for i := range existing {
			if strings.EqualFold(existing[i].Name, demo.name) {
				found = &existing[i]
				break
			}
		}
		if found == nil {
			found, err = service.CreateMenuItem(ctx, demo.name, decimal.RequireFromString(demo.price))
			if err != nil {
				return nil, fmt.Errorf("failed to create menu item %q: %w", demo.name, err)
			}
		}
		menu = append(menu, *found)
	}
	return menu, nil
}

// randomOrder picks a table, a status and one to five distinct menu items
func randomOrder(rng *rand.Rand, menu []models.MenuItem) order.CreateOrderInput {
	input := order.CreateOrderInput{
		TableNumber: rng.IntN(10) + 1,
		Status:      string(models.OrderStatuses[rng.IntN(len(models.OrderStatuses))]),
	}

	count := rng.IntN(min(5, len(menu))) + 1
	for _, idx := range rng.Perm(len(menu))[:count] {
		input.Items = append(input.Items, order.LineInput{
			MenuItemID: menu[idx].ID,
			Quantity:   rng.IntN(5) + 1,
		})
	}
	return input
}
