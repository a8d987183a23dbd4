package model

import "github.com/shopspring/decimal"

// Summary aggregates a user's goals for the dashboard.
type Summary struct {
	TotalGoals           int             `json:"totalGoals"`
	LockedGoals          int             `json:"lockedGoals"`
	WithdrawnGoals       int             `json:"withdrawnGoals"`
	TotalLocked          decimal.Decimal `json:"totalLocked"`
	TotalWithdrawn       decimal.Decimal `json:"totalWithdrawn"`
	TotalPenalties       decimal.Decimal `json:"totalPenalties"`
	EmergencyWithdrawals int             `json:"emergencyWithdrawals"`
}

func NewSummary(goals []*Goal) *Summary {
	s := &Summary{
		TotalLocked:    decimal.Zero,
		TotalWithdrawn: decimal.Zero,
		TotalPenalties: decimal.Zero,
	}

	for _, g := range goals {
		s.TotalGoals++
		s.EmergencyWithdrawals += g.WithdrawCount
		s.TotalPenalties = s.TotalPenalties.Add(g.PenaltyAmount)

		if g.IsLocked() {
			s.LockedGoals++
			s.TotalLocked = s.TotalLocked.Add(g.CurrentAmount)
		} else {
			s.WithdrawnGoals++
			s.TotalWithdrawn = s.TotalWithdrawn.Add(g.CurrentAmount)
		}
	}

	return s
}
