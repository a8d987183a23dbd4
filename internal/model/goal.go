package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type GoalStatus string

const (
	GoalStatusLocked    GoalStatus = "locked"
	GoalStatusWithdrawn GoalStatus = "withdrawn"
)

// DateLayout is the wire format of LockUntil.
const DateLayout = "2006-01-02"

func init() {
	// Amounts go over the wire as JSON numbers, like the client expects.
	decimal.MarshalJSONWithoutQuotes = true
}

type Goal struct {
	ID               string          `db:"id" json:"id"`
	UserID           string          `db:"user_id" json:"ownerId"`
	Label            string          `db:"label" json:"label"`
	TargetAmount     decimal.Decimal `db:"target_amount" json:"targetAmount"`
	CurrentAmount    decimal.Decimal `db:"current_amount" json:"currentAmount"`
	LockUntil        time.Time       `db:"lock_until" json:"-"`
	Status           GoalStatus      `db:"status" json:"status"`
	EmergencyAllowed bool            `db:"emergency_allowed" json:"emergencyAllowed"`
	WithdrawCount    int             `db:"withdraw_count" json:"withdrawCount"`
	PenaltyAmount    decimal.Decimal `db:"penalty_amount" json:"penaltyAmount"`
	Version          int             `db:"version" json:"version"`
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updatedAt"`
}

func (g *Goal) IsLocked() bool {
	return g.Status == GoalStatusLocked
}

// Unlocked reports whether the lock date has been reached at now.
func (g *Goal) Unlocked(now time.Time) bool {
	return !now.Before(g.LockUntil)
}

// LockUntilDate returns the lock date in DateLayout.
func (g *Goal) LockUntilDate() string {
	if g.LockUntil.IsZero() {
		return ""
	}
	return g.LockUntil.UTC().Format(DateLayout)
}

func (g Goal) MarshalJSON() ([]byte, error) {
	type goalJSON Goal
	return json.Marshal(struct {
		goalJSON
		LockUntil string `json:"lockUntil"`
	}{goalJSON(g), g.LockUntilDate()})
}
