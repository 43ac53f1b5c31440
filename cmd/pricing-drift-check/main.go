// pricing-drift-check recomputes every stored quote's totals with the
// current calculator and reports rows whose denormalized amount columns
// no longer match. Read-only; exits 1 when drift is found.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/pricing-drift-check
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/quotes_backend/config"
	"bitbucket.org/mmdatafocus/quotes_backend/models"
	"bitbucket.org/mmdatafocus/quotes_backend/quotestore"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func main() {
	companyID := flag.String("company-id", "", "Limit the scan to one company")
	batchSize := flag.Int("batch-size", 200, "Rows per batch")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	query := db.Model(&models.Quote{})
	if strings.TrimSpace(*companyID) != "" {
		query = query.Where("company_id = ?", *companyID)
	}

	var scanned, driftedRows int
	var batch []models.Quote
	result := query.Order("id").FindInBatches(&batch, *batchSize, func(tx *gorm.DB, _ int) error {
		for i := range batch {
			quote := &batch[i]
			scanned++

			content, err := quotestore.ContentFromEntity(quote)
			if err != nil {
				fmt.Printf("drift: quote %d (%s %s) content unreadable: %v\n",
					quote.ID, quote.CompanyId, quote.QuoteNumber, err)
				driftedRows++
				continue
			}

			draft := &models.QuoteDraft{LineItems: content.Products, Pricing: content.Pricing}
			draft.ComputeSummary()

			rowDrift := false
			for _, check := range []struct {
				column string
				stored decimal.Decimal
				want   decimal.Decimal
			}{
				{"sub_total", quote.SubTotal, draft.Summary.Subtotal},
				{"discount_amount", quote.DiscountAmount, draft.Summary.DiscountAmount},
				{"tax_amount", quote.TaxAmount, draft.Summary.TaxAmount},
				{"total_amount", quote.TotalAmount, draft.Summary.Total},
				{"down_payment_amount", quote.DownPaymentAmount, draft.Summary.DownPaymentAmount},
				{"remaining_balance", quote.RemainingBalance, draft.Summary.RemainingBalance},
			} {
				if !check.stored.Equal(check.want) {
					fmt.Printf("drift: quote %d (%s %s) %s stored=%s recomputed=%s\n",
						quote.ID, quote.CompanyId, quote.QuoteNumber, check.column, check.stored, check.want)
					rowDrift = true
				}
			}
			if rowDrift {
				driftedRows++
			}
		}
		return nil
	})
	if result.Error != nil {
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", result.Error)
		os.Exit(1)
	}

	fmt.Printf("scanned %d quotes, %d rows drifting\n", scanned, driftedRows)
	if driftedRows > 0 {
		os.Exit(1)
	}
}
