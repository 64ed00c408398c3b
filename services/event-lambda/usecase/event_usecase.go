package usecase

import (
	"context"
	"strconv"
	"strings"

	"github.com/jinzhu/copier"

	"github.com/checkin-web/common/config"
	apperrors "github.com/checkin-web/common/errors"
	"github.com/checkin-web/common/logger"
	"github.com/checkin-web/common/validator"
	"github.com/checkin-web/services/event-lambda/models"
	"github.com/checkin-web/services/event-lambda/repository"
)

const msgSelectSchedule = "관람 시간을 선택해주세요"

// EventUseCase handles the landing page and reservation submission.
type EventUseCase struct {
	eventRepo *repository.EventRepository
	config    *config.SystemConfig
}

// NewEventUseCase creates a new event use case
func NewEventUseCase(repo *repository.EventRepository, cfg *config.SystemConfig) *EventUseCase {
	if cfg == nil {
		cfg = config.GetConfig()
	}
	return &EventUseCase{
		eventRepo: repo,
		config:    cfg,
	}
}

// GetEvent loads the public event. 403 and 404 come back as AppErrors.
func (uc *EventUseCase) GetEvent(ctx context.Context, eventCode string) (*models.Event, error) {
	eventCode = strings.TrimSpace(eventCode)
	if eventCode == "" {
		return nil, apperrors.NotFound("이벤트")
	}
	return uc.eventRepo.GetEvent(ctx, eventCode)
}

// CheckScheduleSelected is the first validation step.
func CheckScheduleSelected(form *models.ReservationForm) error {
	if form.ScheduleID <= 0 {
		return apperrors.InvalidInput("schedule", msgSelectSchedule)
	}
	return nil
}

// ValidateReservation checks the form against the event, in order:
// schedule, sold out, name, phone length, required answers. The first
// failure is returned.
func (uc *EventUseCase) ValidateReservation(event *models.Event, form *models.ReservationForm) error {
	if err := CheckScheduleSelected(form); err != nil {
		return err
	}

	schedule := event.FindSchedule(form.ScheduleID)
	if schedule == nil {
		return apperrors.InvalidInput("schedule", msgSelectSchedule)
	}
	if schedule.SoldOut() {
		return apperrors.ScheduleSoldOut()
	}

	if strings.TrimSpace(form.GuestName) == "" {
		return apperrors.MissingField("name", "이름을 입력해주세요")
	}

	if len(validator.DigitsOnly(form.PhoneNumber)) < uc.config.PhoneMinLength {
		return apperrors.InvalidPhone(uc.config.PhoneMinLength)
	}

	for _, q := range event.Questions {
		if !q.Required || !q.FreeText() {
			continue
		}
		if strings.TrimSpace(form.Responses[q.ID]) == "" {
			return apperrors.MissingField(AnswerField(q.ID), "필수 질문에 답변해주세요: "+q.Text)
		}
	}
	return nil
}

// BuildRequest maps the validated form onto the API payload. Alias
// questions are answered from the name and phone inputs.
func (uc *EventUseCase) BuildRequest(event *models.Event, form *models.ReservationForm) (*models.ReservationRequest, error) {
	req := &models.ReservationRequest{}
	if err := copier.Copy(req, form); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to build reservation")
	}

	req.EventCode = event.EventCode
	req.GuestName = strings.TrimSpace(req.GuestName)
	req.PhoneNumber = validator.DigitsOnly(req.PhoneNumber)
	req.Answers = make([]models.Answer, 0, len(event.Questions))

	for _, q := range event.Questions {
		var answer string
		switch q.Alias() {
		case "name":
			answer = req.GuestName
		case "phone":
			answer = req.PhoneNumber
		default:
			answer = strings.TrimSpace(form.Responses[q.ID])
			if answer == "" {
				continue
			}
		}
		req.Answers = append(req.Answers, models.Answer{QuestionID: q.ID, Answer: answer})
	}
	return req, nil
}

// Reserve validates, then submits. Nothing is sent when validation fails.
func (uc *EventUseCase) Reserve(ctx context.Context, event *models.Event, form *models.ReservationForm) (*models.ReservationResult, error) {
	if err := uc.ValidateReservation(event, form); err != nil {
		return nil, err
	}

	req, err := uc.BuildRequest(event, form)
	if err != nil {
		return nil, err
	}

	result, err := uc.eventRepo.CreateReservation(ctx, req)
	if err != nil {
		logger.WithContext(ctx).LogEvent(logger.EventLog{
			Event:    "reservation",
			Action:   "create",
			Entity:   "event",
			EntityID: event.EventCode,
			Success:  false,
			Error:    err.Error(),
		})
		return nil, err
	}
	if result.QRToken == "" {
		return nil, apperrors.ExternalServiceError("api", "예약 결과를 확인할 수 없습니다")
	}

	logger.WithContext(ctx).LogEvent(logger.EventLog{
		Event:    "reservation",
		Action:   "create",
		Entity:   "event",
		EntityID: event.EventCode,
		Success:  true,
		Metadata: map[string]interface{}{
			"schedule_id": req.ScheduleID,
			"phone":       validator.MaskPhone(req.PhoneNumber),
		},
	})
	return result, nil
}

// AnswerField is the form field name of a free-text question.
func AnswerField(id int64) string {
	return "answer_" + strconv.FormatInt(id, 10)
}
