package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/wallet_sessions/internal/model"
)

// ParticipantShare is one participant's part of a session's expenses.
type ParticipantShare struct {
	UserID        string
	Name          string
	WalletAddress string
	Amount        float64
	Share         float64 // percent of the session total
}

// Label is the name shown for the participant in reports and charts.
func (p ParticipantShare) Label() string {
	switch {
	case p.Name != "":
		return p.Name
	case p.WalletAddress != "":
		return shortWallet(p.WalletAddress)
	default:
		return p.UserID
	}
}

// DailySpend is the sum of expenses dated on one UTC day.
type DailySpend struct {
	Date   time.Time
	Amount float64
}

// SessionReport is a readable summary of session details.
type SessionReport struct {
	Details *model.SessionDetails
	Shares  []ParticipantShare
	Daily   []DailySpend
	Text    string
}

// BuildReport groups the session's expenses by participant and by day.
func BuildReport(details *model.SessionDetails) *SessionReport {
	report := &SessionReport{
		Details: details,
		Shares:  spendingShares(details),
		Daily:   dailySpend(details.Expenses),
	}
	report.Text = formatReport(report)
	return report
}

func spendingShares(details *model.SessionDetails) []ParticipantShare {
	byUser := make(map[string]decimal.Decimal)
	total := decimal.Zero
	for _, e := range details.Expenses {
		amount := decimal.NewFromFloat(e.Amount)
		byUser[e.UserID] = byUser[e.UserID].Add(amount)
		total = total.Add(amount)
	}

	known := make(map[string]model.ParticipantView, len(details.Participants))
	for _, p := range details.Participants {
		known[p.ID] = p
	}

	shares := make([]ParticipantShare, 0, len(byUser))
	for userID, amount := range byUser {
		share := ParticipantShare{
			UserID: userID,
			Amount: amount.InexactFloat64(),
		}
		if p, ok := known[userID]; ok {
			share.Name = p.Name
			share.WalletAddress = p.WalletAddress
		}
		if total.IsPositive() {
			share.Share = amount.Div(total).Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64()
		}
		shares = append(shares, share)
	}

	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Amount != shares[j].Amount {
			return shares[i].Amount > shares[j].Amount
		}
		return shares[i].Label() < shares[j].Label()
	})
	return shares
}

// dailySpend skips expenses whose date cannot be parsed.
func dailySpend(expenses []model.ExpenseView) []DailySpend {
	byDay := make(map[time.Time]decimal.Decimal)
	for _, e := range expenses {
		if e.Date == "" {
			continue
		}
		at, err := model.ParseTimestamp(e.Date)
		if err != nil {
			continue
		}
		at = at.UTC()
		day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
		byDay[day] = byDay[day].Add(decimal.NewFromFloat(e.Amount))
	}

	days := make([]DailySpend, 0, len(byDay))
	for day, amount := range byDay {
		days = append(days, DailySpend{Date: day, Amount: amount.InexactFloat64()})
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})
	return days
}

func formatReport(report *SessionReport) string {
	details := report.Details

	var b strings.Builder
	if details.Session != nil {
		fmt.Fprintf(&b, "📋 %s (%s)\n", details.Session.Name, details.Session.State)
		if details.Session.Description != "" {
			fmt.Fprintf(&b, "%s\n", details.Session.Description)
		}
	}

	joined := 0
	for _, p := range details.Participants {
		if p.Joined {
			joined++
		}
	}
	fmt.Fprintf(&b, "👥 Participants: %d/%d joined\n", joined, len(details.Participants))
	fmt.Fprintf(&b, "💸 Total expenses: %.2f", details.TotalExpenses)

	if len(report.Shares) > 0 {
		b.WriteString("\n\nSpending by participant:")
		for _, s := range report.Shares {
			fmt.Fprintf(&b, "\n• %s: %.2f (%.1f%%)", s.Label(), s.Amount, s.Share)
		}
	}
	return b.String()
}

func shortWallet(wallet string) string {
	if len(wallet) <= 12 {
		return wallet
	}
	return wallet[:6] + "…" + wallet[len(wallet)-4:]
}
