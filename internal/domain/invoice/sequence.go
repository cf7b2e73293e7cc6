package invoice

import (
	"fmt"
	"time"
)

// InvoiceSequence is the invoice number counter for one month, shared by all tenants
type InvoiceSequence struct {
	YearMonth string    `db:"year_month"`
	LastValue int64     `db:"last_value"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// YearMonth formats t the way sequences are keyed, e.g. 202311
func YearMonth(t time.Time) string {
	return t.UTC().Format("200601")
}

// FormatNumber renders an invoice number such as INV-202311-00001
func FormatNumber(yearMonth string, value int64) string {
	return fmt.Sprintf("INV-%s-%05d", yearMonth, value)
}
