package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"restaurant-orders/internal/models"
	"restaurant-orders/internal/services/report"
)

var (
	accent  = lipgloss.Color("#D97706")
	dim     = lipgloss.Color("#6B7280")
	success = lipgloss.Color("#22C55E")
	warning = lipgloss.Color("#F59E0B")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	dimStyle    = lipgloss.NewStyle().Foreground(dim)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	moneyStyle  = cellStyle.Align(lipgloss.Right)

	totalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Bold(true).
			Foreground(success).
			Padding(0, 2)

	statusColors = map[models.OrderStatus]lipgloss.Color{
		models.StatusPending: warning,
		models.StatusReady:   accent,
		models.StatusPaid:    success,
	}
)

const (
	colTotal  = 3
	colStatus = 4
)

// renderOrders draws one row per order
func renderOrders(title string, orders []models.Order) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	if len(orders) == 0 {
		b.WriteString(dimStyle.Render("no orders"))
		b.WriteString("\n")
		return b.String()
	}

	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []string{
			strconv.FormatInt(o.ID, 10),
			strconv.Itoa(o.TableNumber),
			strconv.Itoa(len(o.Lines)),
			models.FormatMoney(o.TotalPrice),
			string(o.Status),
			o.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(dim)).
		Headers("ID", "TABLE", "ITEMS", "TOTAL", "STATUS", "UPDATED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			switch col {
			case colTotal:
				return moneyStyle
			case colStatus:
				if row >= 0 && row < len(rows) {
					return cellStyle.Foreground(statusColors[models.OrderStatus(rows[row][col])])
				}
			}
			return cellStyle
		})

	b.WriteString(t.String())
	b.WriteString("\n")
	return b.String()
}

// renderRevenue draws the paid orders followed by the boxed total
func renderRevenue(r *report.RevenueReport) string {
	var b strings.Builder
	b.WriteString(renderOrders("Paid orders", r.Orders))
	b.WriteString(totalStyle.Render(fmt.Sprintf("Total revenue: %s", models.FormatMoney(r.TotalRevenue))))
	b.WriteString("\n")
	return b.String()
}
