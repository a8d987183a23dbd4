package service

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/venus-savings/venus/internal/model"
)

func welcomeEmailTemplate(appName string) (string, string) {
	subject := fmt.Sprintf("Welcome to %s!", appName)
	body := fmt.Sprintf(`Hi,

Thanks for signing up. Create your first savings goal, pick a date to lock it until, and let time do the rest.

Best,
The %s Team`, appName)

	return subject, body
}

func emergencyWithdrawalEmailTemplate(goal *model.Goal, penalty decimal.Decimal, appName string) (string, string) {
	subject := fmt.Sprintf("Emergency withdrawal from %q", goal.Label)

	charge := "This was your first early break on this goal, so no penalty was charged."
	if penalty.IsPositive() {
		charge = fmt.Sprintf("A penalty of %s was charged. Total penalties on this goal: %s.",
			formatMoney(penalty), formatMoney(goal.PenaltyAmount))
	}

	body := fmt.Sprintf(`Hi,

You withdrew %s from your goal %q before its lock date (%s).

%s

If this wasn't you, change your password right away.

Best,
The %s Team`, formatMoney(goal.CurrentAmount), goal.Label, goal.LockUntilDate(), charge, appName)

	return subject, body
}
