package service

import (
	"github.com/shopspring/decimal"

	"github.com/ivanoskov/wallet_sessions/internal/model"
)

// summarizeSessions flattens participation rows into session summaries.
// Rows whose session embed is missing are dropped. The id always comes
// from the participation row.
func summarizeSessions(rows []model.Participant) []model.SessionSummary {
	summaries := make([]model.SessionSummary, 0, len(rows))
	for _, row := range rows {
		if row.Session == nil {
			continue
		}
		summary := model.SessionSummary{
			Session:  *row.Session,
			IsJoined: row.Joined,
		}
		summary.ID = row.SessionID
		summaries = append(summaries, summary)
	}
	return summaries
}

func participantViews(rows []model.Participant) []model.ParticipantView {
	views := make([]model.ParticipantView, 0, len(rows))
	for _, row := range rows {
		view := model.ParticipantView{
			ID:         row.UserID,
			Joined:     row.Joined,
			TotalSpent: row.TotalSpent,
		}
		if row.User != nil {
			if row.User.ID != "" {
				view.ID = row.User.ID
			}
			view.Name = row.User.Name
			view.WalletAddress = row.User.WalletAddress
		}
		views = append(views, view)
	}
	return views
}

// expenseViews renders expenses and returns their exact sum.
func expenseViews(expenses []model.Expense) ([]model.ExpenseView, decimal.Decimal) {
	views := make([]model.ExpenseView, 0, len(expenses))
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)

		date := ""
		if e.Date != nil {
			date = e.Date.String()
		}
		views = append(views, model.ExpenseView{
			ID:          e.ID,
			UserID:      e.UserID,
			Amount:      e.Amount.InexactFloat64(),
			Description: e.Description,
			Date:        date,
		})
	}
	return views, total
}

func buildDetails(session *model.Session, rows []model.Participant, expenses []model.Expense) *model.SessionDetails {
	views, total := expenseViews(expenses)
	return &model.SessionDetails{
		Session:       session,
		Participants:  participantViews(rows),
		Expenses:      views,
		TotalExpenses: total.Round(2).InexactFloat64(),
	}
}

func hasWallet(rows []model.Participant, wallet string) bool {
	if wallet == "" {
		return false
	}
	for _, row := range rows {
		if row.User != nil && row.User.WalletAddress == wallet {
			return true
		}
	}
	return false
}

func countPending(rows []model.Participant) int {
	n := 0
	for _, row := range rows {
		if !row.Joined {
			n++
		}
	}
	return n
}
