package handler

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/venus-savings/venus/internal/ctxkeys"
	"github.com/venus-savings/venus/internal/service"
	"github.com/venus-savings/venus/internal/validation"
)

const (
	actionEmergencyWithdraw = "emergency-withdraw"
	actionRelock            = "relock"
	actionDeposit           = "deposit"
)

type GoalHandler struct {
	goalService  *service.GoalService
	checkService *service.CheckService
}

func NewGoalHandler(goalService *service.GoalService, checkService *service.CheckService) *GoalHandler {
	return &GoalHandler{
		goalService:  goalService,
		checkService: checkService,
	}
}

type createGoalRequest struct {
	Label            string           `json:"label"`
	Amount           *decimal.Decimal `json:"amount"`
	TargetAmount     *decimal.Decimal `json:"targetAmount"`
	LockUntil        string           `json:"lockUntil"`
	EmergencyAllowed *bool            `json:"emergencyAllowed"`
	InitialDeposit   *decimal.Decimal `json:"initialDeposit"`
}

// patchGoalRequest is either an action or a partial edit.
type patchGoalRequest struct {
	Action           string           `json:"action"`
	Label            *string          `json:"label"`
	Amount           *decimal.Decimal `json:"amount"`
	TargetAmount     *decimal.Decimal `json:"targetAmount"`
	LockUntil        *string          `json:"lockUntil"`
	EmergencyAllowed *bool            `json:"emergencyAllowed"`
}

func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	goals, err := h.goalService.Goals(r.Context(), ctxkeys.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{"goals": goals})
}

func (h *GoalHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.goalService.Summary(r.Context(), ctxkeys.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{"summary": summary})
}

func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createGoalRequest
	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	in := service.GoalInput{
		Label:            req.Label,
		TargetAmount:     decimal.Zero,
		LockUntil:        req.LockUntil,
		EmergencyAllowed: true,
		InitialDeposit:   decimal.Zero,
	}
	if req.TargetAmount != nil {
		in.TargetAmount = *req.TargetAmount
	} else if req.Amount != nil {
		in.TargetAmount = *req.Amount
	}
	if req.EmergencyAllowed != nil {
		in.EmergencyAllowed = *req.EmergencyAllowed
	}
	if req.InitialDeposit != nil {
		in.InitialDeposit = *req.InitialDeposit
	}

	goal, err := h.goalService.Create(r.Context(), ctxkeys.UserID(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{"message": "goal created and locked.", "goal": goal})
}

func (h *GoalHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var req patchGoalRequest
	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	userID := ctxkeys.UserID(ctx)
	goalID := r.PathValue("id")

	switch req.Action {
	case actionEmergencyWithdraw:
		goal, decision, err := h.goalService.Withdraw(ctx, userID, goalID)
		if err != nil {
			writeError(w, r, err)
			return
		}

		message := "goal withdrawn."
		if decision.Emergency {
			message = fmt.Sprintf("emergency withdrawal done. penalty: %s.", decision.Penalty.StringFixed(2))
		}
		writeJSON(w, http.StatusOK, envelope{
			"message":   message,
			"goal":      goal,
			"emergency": decision.Emergency,
			"penalty":   decision.Penalty,
		})

	case actionRelock:
		if req.LockUntil == nil {
			writeError(w, r, &validation.Error{Field: "lockUntil", Message: "lock date is required"})
			return
		}
		goal, err := h.goalService.Relock(ctx, userID, goalID, *req.LockUntil)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{"message": "goal locked again.", "goal": goal})

	case actionDeposit:
		amount := decimal.Zero
		if req.Amount != nil {
			amount = *req.Amount
		}
		goal, err := h.goalService.Deposit(ctx, userID, goalID, amount)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{"message": "deposit added.", "goal": goal})

	case "":
		patch := service.GoalPatch{
			Label:            req.Label,
			TargetAmount:     req.TargetAmount,
			LockUntil:        req.LockUntil,
			EmergencyAllowed: req.EmergencyAllowed,
		}
		if patch.TargetAmount == nil {
			patch.TargetAmount = req.Amount
		}
		goal, err := h.goalService.Update(ctx, userID, goalID, patch)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{"message": "goal updated.", "goal": goal})

	default:
		writeError(w, r, &validation.Error{Field: "action", Message: fmt.Sprintf("unknown action %q", req.Action)})
	}
}

func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.goalService.Delete(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "goal deleted.")
}

// UploadCheck records a deposit from a multipart form with an "amount"
// field and a "check" image.
func (h *GoalHandler) UploadCheck(w http.ResponseWriter, r *http.Request) {
	if !h.checkService.Enabled() {
		writeError(w, r, service.ErrCheckUploadsDisabled)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxCheckSize+maxBodySize)
	err := r.ParseMultipartForm(service.MaxCheckSize)
	if err != nil {
		writeError(w, r, &validation.Error{Field: "check", Message: "check image must be 5 MB or smaller"})
		return
	}

	amount, err := decimal.NewFromString(r.FormValue("amount"))
	if err != nil {
		writeError(w, r, &validation.Error{Field: "amount", Message: "amount must be a number"})
		return
	}

	file, _, err := r.FormFile("check")
	if err != nil {
		writeError(w, r, &validation.Error{Field: "check", Message: "check image is required"})
		return
	}
	defer file.Close()

	goal, checkURL, err := h.checkService.Deposit(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"), amount, file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{"message": "check deposited.", "goal": goal, "checkUrl": checkURL})
}
