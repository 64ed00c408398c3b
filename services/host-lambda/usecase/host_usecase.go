package usecase

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/checkin-web/common/config"
	apperrors "github.com/checkin-web/common/errors"
	"github.com/checkin-web/common/logger"
	"github.com/checkin-web/common/scanguard"
	"github.com/checkin-web/services/host-lambda/models"
	"github.com/checkin-web/services/host-lambda/repository"
)

type HostUseCase struct {
	hostRepo      *repository.HostRepository
	guard         scanguard.Guard
	config        *config.SystemConfig
	publicBaseURL string
}

// NewHostUseCase creates a new host use case. A nil guard means an
// in-memory guard with the configured cool-down.
func NewHostUseCase(repo *repository.HostRepository, guard scanguard.Guard, cfg *config.SystemConfig) *HostUseCase {
	if cfg == nil {
		cfg = config.GetConfig()
	}
	if guard == nil {
		guard = scanguard.NewMemoryGuard(cfg.ScanCooldown(), nil)
	}
	return &HostUseCase{
		hostRepo:      repo,
		guard:         guard,
		config:        cfg,
		publicBaseURL: config.PublicBaseURL(),
	}
}

// ShareURL is the public landing link of an event.
func (uc *HostUseCase) ShareURL(eventCode string) string {
	return uc.publicBaseURL + "/e/" + url.PathEscape(eventCode)
}

// ListEvents - dashboard rows with share links
func (uc *HostUseCase) ListEvents(ctx context.Context, token string) ([]models.DashboardRow, error) {
	events, err := uc.hostRepo.ListEvents(ctx, token)
	if err != nil {
		return nil, err
	}
	rows := make([]models.DashboardRow, 0, len(events))
	for _, e := range events {
		rows = append(rows, models.DashboardRow{HostEvent: e, ShareURL: uc.ShareURL(e.EventCode)})
	}
	return rows, nil
}

// SetVisibility applies the state the switch was optimistically flipped
// to. When the call fails the result carries the previous state back.
func (uc *HostUseCase) SetVisibility(ctx context.Context, token string, eventID int64, visible bool) (models.VisibilityResult, error) {
	if err := uc.hostRepo.SetVisibility(ctx, token, eventID, visible); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("Visibility change of event %d reverted", eventID)
		return models.VisibilityResult{
			Visible:  !visible,
			Reverted: true,
			Error:    apperrors.ToAppError(err).Message,
		}, err
	}

	logger.WithContext(ctx).LogEvent(logger.EventLog{
		Event:    "event",
		Action:   "visibility",
		Entity:   "event",
		EntityID: strconv.FormatInt(eventID, 10),
		Success:  true,
		Metadata: map[string]interface{}{"visible": visible},
	})
	return models.VisibilityResult{Visible: visible}, nil
}

// EventStatus - roster per schedule
func (uc *HostUseCase) EventStatus(ctx context.Context, token string, eventID int64) (*models.EventStatus, error) {
	return uc.hostRepo.GetScheduleStatus(ctx, token, eventID)
}

// Scan checks in the reservation behind a scanned QR payload. The same
// payload seen again for this event inside the cool-down window is
// dropped without a request.
func (uc *HostUseCase) Scan(ctx context.Context, token string, eventID int64, qrToken string) (*models.CheckinResult, error) {
	qrToken = strings.TrimSpace(qrToken)
	if qrToken == "" {
		return nil, apperrors.InvalidInput("qrToken", "QR 코드를 읽지 못했습니다")
	}

	key := strconv.FormatInt(eventID, 10) + ":" + qrToken
	first, err := uc.guard.Acquire(ctx, key)
	if err != nil {
		// a broken shared guard must not stop the door
		logger.WithContext(ctx).WithError(err).Warn("Scan guard unavailable")
		first = true
	}
	if !first {
		return nil, apperrors.ScanCoolingDown()
	}

	result, err := uc.hostRepo.CheckinByQR(ctx, token, qrToken)
	uc.logCheckin(ctx, "scan", eventID, err)
	return result, err
}

// Checkin - manual check-in from the roster
func (uc *HostUseCase) Checkin(ctx context.Context, token string, eventID, reservationID int64) error {
	err := uc.hostRepo.CheckinReservation(ctx, token, reservationID)
	uc.logCheckin(ctx, "manual", eventID, err)
	return err
}

func (uc *HostUseCase) logCheckin(ctx context.Context, via string, eventID int64, err error) {
	entry := logger.EventLog{
		Event:    "checkin",
		Action:   via,
		Entity:   "event",
		EntityID: strconv.FormatInt(eventID, 10),
		Success:  err == nil,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	logger.WithContext(ctx).LogEvent(entry)
}
