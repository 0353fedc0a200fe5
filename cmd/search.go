// file: cmd/search.go
// version: 1.0.0
// guid: 0e1f2a3b-4c5d-6e7f-8a9b-0c1d2e3f4a5b

package cmd

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/gofleetadvisor/fleetdocs/internal/dockey"
	"github.com/gofleetadvisor/fleetdocs/internal/models"
	"github.com/gofleetadvisor/fleetdocs/internal/query"
	"github.com/gofleetadvisor/fleetdocs/internal/storage"
)

// searchCmd runs a structured retrieval query from the command line.
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search filed documents",
	Long: `Search the filed documents by company, unit, invoice, VIN, plate, type,
and date range. At least one constraint is required.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := queryFromFlags(cmd)
		if err != nil {
			return err
		}
		if q.IsEmpty() {
			return fmt.Errorf("at least one search constraint is required")
		}

		client := supabaseClient()
		keys, err := loadIndex(cmd, client)
		if err != nil {
			return err
		}

		result := query.Match(q, keys, time.Now)
		for _, key := range result.Documents {
			bucket := storage.BucketInvoice
			if key.Inspection {
				bucket = storage.BucketDOT
			}
			fmt.Println(client.PublicURL(bucket, key.Raw))
		}
		if result.Truncated {
			fmt.Printf("(%d of %d matches shown, raise --limit for more)\n",
				result.ReturnedCount, result.TotalMatches)
		} else {
			fmt.Printf("(%d matches)\n", result.TotalMatches)
		}
		return nil
	},
}

func queryFromFlags(cmd *cobra.Command) (models.Query, error) {
	flags := cmd.Flags()
	q := models.Query{}
	q.Company, _ = flags.GetString("company")
	q.Unit, _ = flags.GetString("unit")
	q.Invoice, _ = flags.GetString("invoice")
	q.VIN, _ = flags.GetString("vin")
	q.Plate, _ = flags.GetString("plate")
	q.DocType, _ = flags.GetString("type")
	q.Limit, _ = flags.GetInt("limit")

	switch q.DocType {
	case "", models.DocTypeAll, models.DocTypeInvoice, models.DocTypeDOT:
	default:
		return q, fmt.Errorf("unknown type %q", q.DocType)
	}

	if rangeName, _ := flags.GetString("range"); rangeName != "" {
		switch kind := models.RangeKind(rangeName); kind {
		case models.RangeThisWeek, models.RangeLastWeek, models.RangeThisMonth, models.RangeLastMonth:
			q.DateRange.Kind = kind
		default:
			return q, fmt.Errorf("unknown range %q", rangeName)
		}
		return q, nil
	}

	if month, _ := flags.GetString("month"); month != "" {
		m, err := time.Parse("January", month)
		if err != nil {
			n, convErr := strconv.Atoi(month)
			if convErr != nil || n < 1 || n > 12 {
				return q, fmt.Errorf("invalid month %q", month)
			}
			q.DateRange.Month = time.Month(n)
		} else {
			q.DateRange.Month = m.Month()
		}
		q.DateRange.Kind = models.RangeMonth
		q.DateRange.Year, _ = flags.GetInt("year")
		return q, nil
	}

	start, _ := flags.GetString("start")
	end, _ := flags.GetString("end")
	if start != "" || end != "" {
		q.DateRange.Kind = models.RangeExplicit
		if start != "" {
			t, err := time.Parse("2006-01-02", start)
			if err != nil {
				return q, fmt.Errorf("invalid start %q, want YYYY-MM-DD", start)
			}
			q.DateRange.Start = t
		}
		if end != "" {
			t, err := time.Parse("2006-01-02", end)
			if err != nil {
				return q, fmt.Errorf("invalid end %q, want YYYY-MM-DD", end)
			}
			q.DateRange.End = t
		}
	}
	return q, nil
}

// loadIndex lists both buckets and decodes every well-formed name.
func loadIndex(cmd *cobra.Command, bucket storage.Bucket) ([]models.DocumentKey, error) {
	var keys []models.DocumentKey
	for _, b := range []string{storage.BucketInvoice, storage.BucketDOT} {
		objects, err := bucket.List(cmd.Context(), b)
		if err != nil {
			return nil, err
		}
		for _, obj := range objects {
			key, err := dockey.Decode(obj.Name)
			if err != nil {
				log.Printf("[WARN] skipping unindexable object %s/%s: %v", b, obj.Name, err)
				continue
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func init() {
	searchCmd.Flags().String("company", "", "company name fragment")
	searchCmd.Flags().String("unit", "", "unit number (exact, case-insensitive)")
	searchCmd.Flags().String("invoice", "", "invoice number fragment")
	searchCmd.Flags().String("vin", "", "VIN fragment (suffix match for 8 chars or fewer)")
	searchCmd.Flags().String("plate", "", "license plate fragment")
	searchCmd.Flags().String("type", "all", "document type: invoice, dot, or all")
	searchCmd.Flags().String("range", "", "symbolic range: this_week, last_week, this_month, last_month")
	searchCmd.Flags().String("month", "", "calendar month (name or number)")
	searchCmd.Flags().Int("year", 0, "year for --month (defaults to the current year)")
	searchCmd.Flags().String("start", "", "range start, YYYY-MM-DD")
	searchCmd.Flags().String("end", "", "range end, YYYY-MM-DD")
	searchCmd.Flags().Int("limit", 0, "maximum results (default 15)")
}
