package transaction

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carson-networks/ledger-rules/internal/service"
)

// Transaction is the API response model for a transaction.
// It is used only for responses, not for request bodies.
type Transaction struct {
	ID                     int64  `json:"id" doc:"Transaction ID"`
	Date                   string `json:"date" doc:"Calendar date, YYYY-MM-DD"`
	Description            string `json:"description" doc:"Description as recorded"`
	Amount                 string `json:"amount" doc:"Signed decimal amount"`
	Category               string `json:"category" doc:"Assigned category, empty when none"`
	Flag                   string `json:"flag" doc:"Status or risk marker, empty when none"`
	CategoryManualOverride bool   `json:"categoryManualOverride" doc:"Category is pinned against automated changes"`
	FlagManualOverride     bool   `json:"flagManualOverride" doc:"Flag is pinned against automated changes"`
	CreatedAt              string `json:"createdAt" doc:"RFC3339 creation time"`
}

func toTransaction(tx service.Transaction) Transaction {
	return Transaction{
		ID:                     tx.ID,
		Date:                   tx.Date.Format(time.DateOnly),
		Description:            tx.Description,
		Amount:                 formatAmount(tx.Amount),
		Category:               tx.Category,
		Flag:                   tx.Flag,
		CategoryManualOverride: tx.CategoryManualOverride,
		FlagManualOverride:     tx.FlagManualOverride,
		CreatedAt:              tx.CreatedAt.Format(time.RFC3339),
	}
}

// formatAmount shows at least cents and never drops stored precision.
func formatAmount(amount decimal.Decimal) string {
	exact := amount.String()
	if dot := strings.IndexByte(exact, '.'); dot >= 0 && len(exact)-dot-1 > 2 {
		return exact
	}
	return amount.StringFixed(2)
}
