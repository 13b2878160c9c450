package views

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vadiminshakov/folio/internal/domain"
)

// TransactionReader reads executed trades.
type TransactionReader interface {
	Transactions(ctx context.Context) ([]domain.Transaction, error)
}

// SortNewestFirst orders transactions by CreatedAt descending.
func SortNewestFirst(txs []domain.Transaction) []domain.Transaction {
	out := append([]domain.Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// History renders the transaction history tool, newest first, limited to limit rows (all when < 1).
func History(ctx context.Context, reader TransactionReader, limit int) (string, error) {
	txs, err := reader.Transactions(ctx)
	if err != nil {
		return "", err
	}
	return RenderHistory(txs, limit), nil
}

// RenderHistory formats transactions as a table with a derived unit price column.
func RenderHistory(txs []domain.Transaction, limit int) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Transactions") + "\n")
	if len(txs) == 0 {
		b.WriteString(MutedStyle.Render("No transactions yet."))
		return BoxStyle.Render(b.String())
	}

	txs = SortNewestFirst(txs)
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}

	cell := lipgloss.NewStyle().PaddingRight(2)
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		cell.Width(18).Render("Date"),
		cell.Width(8).Render("Asset"),
		cell.Width(6).Render("Type"),
		cell.Width(10).Render("Qty"),
		cell.Width(14).Render("Price"),
		"Amount",
	)
	b.WriteString(MutedStyle.Render(header) + "\n")

	for _, tx := range txs {
		date := "-"
		if !tx.CreatedAt.IsZero() {
			date = tx.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		row := lipgloss.JoinHorizontal(lipgloss.Top,
			cell.Width(18).Render(date),
			cell.Width(8).Render(tx.Asset),
			cell.Width(6).Render(tx.Type),
			cell.Width(10).Render(FormatQuantity(tx.AssetQuantity.Abs())),
			cell.Width(14).Render(FormatMoney(tx.Price())),
			FormatSignedMoney(tx.Amount),
		)
		b.WriteString(row + "\n")
	}
	fmt.Fprintf(&b, "%s", MutedStyle.Render(fmt.Sprintf("%d shown", len(txs))))
	return BoxStyle.Render(b.String())
}
