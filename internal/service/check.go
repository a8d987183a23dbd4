package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/venus-savings/venus/internal/model"
	"github.com/venus-savings/venus/internal/storage"
	"github.com/venus-savings/venus/internal/validation"
)

const MaxCheckSize = 5 << 20 // 5 MB

var ErrCheckUploadsDisabled = errors.New("check uploads are not configured")

var checkExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// CheckService records a deposit backed by a photo of a check.
type CheckService struct {
	goals   *GoalService
	storage storage.Storage
}

func NewCheckService(goals *GoalService, storage storage.Storage) *CheckService {
	return &CheckService{goals: goals, storage: storage}
}

func (s *CheckService) Enabled() bool {
	return s.storage != nil
}

// Deposit stores the image, then applies the deposit. The image is removed
// again when the deposit is rejected.
func (s *CheckService) Deposit(ctx context.Context, userID, goalID string, amount decimal.Decimal, image io.Reader) (*model.Goal, string, error) {
	if !s.Enabled() {
		return nil, "", ErrCheckUploadsDisabled
	}

	err := validation.ValidateDepositAmount(amount)
	if err != nil {
		return nil, "", err
	}

	// Verify ownership before uploading anything
	_, err = s.goals.ByID(ctx, userID, goalID)
	if err != nil {
		return nil, "", err
	}

	data, err := io.ReadAll(io.LimitReader(image, MaxCheckSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read check image: %w", err)
	}
	if len(data) > MaxCheckSize {
		return nil, "", &validation.Error{Field: "check", Message: "check image must be 5 MB or smaller"}
	}

	contentType := http.DetectContentType(data)
	ext, ok := checkExtensions[contentType]
	if !ok {
		return nil, "", &validation.Error{Field: "check", Message: "check must be a JPEG, PNG or WebP image"}
	}

	key := path.Join("checks", userID, goalID, uuid.New().String()+ext)
	err = s.storage.Save(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to store check image: %w", err)
	}

	goal, err := s.goals.Deposit(ctx, userID, goalID, amount)
	if err != nil {
		delErr := s.storage.Delete(context.WithoutCancel(ctx), key)
		if delErr != nil {
			slog.Error("failed to delete check image during rollback", "error", delErr, "key", key)
		}
		return nil, "", err
	}

	url, err := s.storage.URL(ctx, key)
	if err != nil {
		slog.Warn("failed to presign check url", "error", err, "key", key)
	}

	return goal, url, nil
}
