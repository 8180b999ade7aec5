package service

import (
	"fmt"
	"strings"
	"time"

	"ridemeter/internal/domain"
)

// BuildStatement aggregates records per session type. Records in another
// currency than the statement's are left out of the totals.
func BuildStatement(driverID, currency string, records []domain.BillingRecord, now time.Time) *domain.BillingStatement {
	currency = strings.ToLower(currency)
	statement := &domain.BillingStatement{
		DriverID:    driverID,
		Total:       domain.Zero(currency),
		GeneratedAt: now,
	}

	for _, t := range domain.SessionTypes {
		total := domain.SessionTotal{Type: t, Amount: domain.Zero(currency)}
		for _, r := range records {
			if r.Type != t || r.Amount.Currency != currency {
				continue
			}
			total.Sessions++
			total.ChargedSeconds += r.ChargedSeconds
			total.Amount = total.Amount.Add(r.Amount)
		}
		statement.Totals = append(statement.Totals, total)
		statement.Total = statement.Total.Add(total.Amount)
		statement.Records += total.Sessions
	}

	return statement
}

// FormatStatement formats the statement as plain text.
func FormatStatement(statement *domain.BillingStatement) string {
	var b strings.Builder
	b.WriteString("=====================================\n")
	b.WriteString("        DRIVER BILLING STATEMENT\n")
	b.WriteString("=====================================\n")
	fmt.Fprintf(&b, "Driver: %s\n", statement.DriverID)
	fmt.Fprintf(&b, "Date:   %s\n\n", statement.GeneratedAt.Format("Jan 02, 2006 3:04 PM"))
	b.WriteString("SESSIONS\n")
	b.WriteString("-------------------------------------\n")
	for _, t := range statement.Totals {
		fmt.Fprintf(&b, "%-10s %3d x  %s  %s\n", t.Type, t.Sessions, formatSeconds(t.ChargedSeconds), t.Amount)
	}
	b.WriteString("-------------------------------------\n")
	fmt.Fprintf(&b, "TOTAL:            %s\n", statement.Total)
	b.WriteString("=====================================\n")
	return b.String()
}

func formatSeconds(seconds int64) string {
	return fmt.Sprintf("%dm%02ds", seconds/60, seconds%60)
}
