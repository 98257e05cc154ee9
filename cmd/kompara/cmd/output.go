package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	apiclient "github.com/donaldgifford/kompara/internal/api/client"
	domain "github.com/donaldgifford/kompara/pkg/types"
)

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printOffersTable(w io.Writer, offers []domain.Offer) error {
	tw := newTabWriter(w)
	tw.writef("#\tPRODUCT\tPRICE\tLINK\n")
	for i := range offers {
		tw.writef("%d\t%s\t%s\t%s\n",
			i+1,
			truncate(offers[i].ProductName, 50),
			offers[i].SalePrice,
			offers[i].MarketingLink,
		)
	}
	return tw.finish()
}

func printQuota(w io.Writer, q *apiclient.QuotaStatus) error {
	tw := newTabWriter(w)
	tw.writef("Enabled:\t%v\n", q.Enabled)
	if q.DailyLimit > 0 {
		tw.writef("Daily Limit:\t%d\n", q.DailyLimit)
		tw.writef("Used:\t%d\n", q.DailyUsed)
		tw.writef("Remaining:\t%d\n", q.Remaining)
		tw.writef("Resets At:\t%s\n", q.ResetAt.Format(time.RFC3339))
	} else {
		tw.writef("Daily Limit:\tunlimited\n")
		tw.writef("Used:\t%d\n", q.DailyUsed)
	}
	return tw.finish()
}

func printToken(w io.Writer, ts *apiclient.TokenStatus) error {
	tw := newTabWriter(w)
	tw.writef("Scheme:\t%s\n", ts.Scheme)
	tw.writef("State:\t%s\n", ts.State)
	if ts.ExpiresAt != nil {
		tw.writef("Expires At:\t%s\n", ts.ExpiresAt.Format(time.RFC3339))
	}
	if ts.Enabled {
		tw.writef("Fetches:\t%d\n", ts.Fetches)
		tw.writef("Failures:\t%d\n", ts.Failures)
	}
	return tw.finish()
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
