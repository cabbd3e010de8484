package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/dto"
	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

type complaintRepository interface {
	FindDetail(ctx context.Context, schoolID, id string) (*models.ComplaintDetail, error)
	Resolve(ctx context.Context, id, response string, resolvedAt time.Time) error
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintDetail, error)
}

type complaintRoster interface {
	CanAccessClass(ctx context.Context, rc models.RequestContext, classID string) (bool, error)
	CanRecordSubject(ctx context.Context, rc models.RequestContext, classID, subjectID string) (bool, error)
}

// ComplaintService tracks student complaints against results through to resolution.
type ComplaintService struct {
	complaints complaintRepository
	roster     complaintRoster
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewComplaintService constructs ComplaintService.
func NewComplaintService(complaints complaintRepository, roster complaintRoster, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ComplaintService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComplaintService{
		complaints: complaints,
		roster:     roster,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Resolve answers an open complaint. Only a teacher assigned to the result's subject, or the
// class teacher of the student's class, may resolve it.
func (s *ComplaintService) Resolve(ctx context.Context, rc models.RequestContext, req dto.ResolveComplaintRequest) (*models.ComplaintDetail, error) {
	if !rc.Valid() {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid complaint resolution")
	}

	detail, err := s.complaints.FindDetail(ctx, rc.SchoolID, req.ComplaintID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Internal(err, "failed to load complaint")
	}

	allowed, err := s.roster.CanRecordSubject(ctx, rc, detail.ClassID, detail.SubjectID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not responsible for this result")
	}

	if err := detail.Complaint.Resolve(req.Response, s.now()); err != nil {
		switch {
		case errors.Is(err, models.ErrAlreadyResolved):
			return nil, appErrors.ErrComplaintResolved
		case errors.Is(err, models.ErrEmptyResponse):
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid complaint resolution", []string{"response is required"})
		default:
			return nil, appErrors.Internal(err, "failed to resolve complaint")
		}
	}

	if err := s.complaints.Resolve(ctx, detail.ID, *detail.TeacherResponse, *detail.ResolvedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrComplaintResolved
		}
		s.logger.Error("failed to resolve complaint", zap.String("complaint_id", detail.ID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to resolve complaint")
	}
	s.metrics.RecordComplaintResolved()
	return detail, nil
}

// ListForClass returns complaints raised against results of a class.
func (s *ComplaintService) ListForClass(ctx context.Context, rc models.RequestContext, classID string, status models.ComplaintStatus) ([]models.ComplaintDetail, error) {
	if !rc.Valid() {
		return nil, appErrors.ErrUnauthorized
	}
	if classID == "" {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid complaint filter", []string{"class_id is required"})
	}
	switch status {
	case "", models.ComplaintOpen, models.ComplaintResolved:
	default:
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid complaint filter", []string{"status must be one of [open resolved]"})
	}
	if !rc.IsAdmin() {
		allowed, err := s.roster.CanAccessClass(ctx, rc, classID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not manage this class")
		}
	}
	items, err := s.complaints.List(ctx, models.ComplaintFilter{SchoolID: rc.SchoolID, ClassID: classID, Status: status})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list complaints")
	}
	return items, nil
}
