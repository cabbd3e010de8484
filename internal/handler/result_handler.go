package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/dto"
	"github.com/noah-isme/sma-results-api/internal/middleware"
	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/response"
)

type resultSubmitter interface {
	SaveSingle(ctx context.Context, rc models.RequestContext, req dto.SingleResultRequest) (*dto.SubmissionResult, error)
	SaveBatch(ctx context.Context, rc models.RequestContext, req dto.BatchResultRequest) (*dto.SubmissionResult, error)
	SaveMultiSubject(ctx context.Context, rc models.RequestContext, req dto.MultiSubjectRequest) (*dto.SubmissionResult, error)
	DeleteResult(ctx context.Context, rc models.RequestContext, req dto.DeleteResultRequest) (*dto.SubmissionResult, error)
	DeleteStudentTerm(ctx context.Context, rc models.RequestContext, req dto.DeleteStudentResultsRequest) (*dto.SubmissionResult, error)
}

type resultReader interface {
	ListResults(ctx context.Context, rc models.RequestContext, query dto.ResultListQuery) ([]models.ResultDetail, error)
	Compile(ctx context.Context, rc models.RequestContext, query dto.ResultListQuery) (*models.ClassCompilation, error)
}

type complaintResolver interface {
	Resolve(ctx context.Context, rc models.RequestContext, req dto.ResolveComplaintRequest) (*models.ComplaintDetail, error)
	ListForClass(ctx context.Context, rc models.RequestContext, classID string, status models.ComplaintStatus) ([]models.ComplaintDetail, error)
}

var supportedActions = []string{
	dto.ActionSaveBatchResults,
	dto.ActionSaveSingleResult,
	dto.ActionSaveMultipleSubjects,
	dto.ActionDeleteResult,
	dto.ActionDeleteStudentResults,
	dto.ActionResolveComplaint,
}

// ResultHandler exposes result submission and the class result views.
type ResultHandler struct {
	results    resultSubmitter
	reader     resultReader
	complaints complaintResolver
}

// NewResultHandler constructs ResultHandler.
func NewResultHandler(results resultSubmitter, reader resultReader, complaints complaintResolver) *ResultHandler {
	return &ResultHandler{results: results, reader: reader, complaints: complaints}
}

// Submit godoc
// @Summary Submit a result action
// @Description Form-style endpoint dispatching on the action field. Batch scores are keyed first_ca[studentId][subjectId]; multi-subject scores first_ca[subjectId] with optional attempted[subjectId].
// @Tags Results
// @Accept x-www-form-urlencoded
// @Produce json
// @Param action formData string true "save_batch_results | save_single_result | save_multiple_subjects | delete_result | delete_student_results | resolve_complaint"
// @Param class_id formData string false "Class ID"
// @Param student_id formData string false "Student ID"
// @Param subject_id formData string false "Subject ID"
// @Param term formData string false "Term"
// @Param academic_session formData string false "Academic session"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /results/actions [post]
func (h *ResultHandler) Submit(c *gin.Context) {
	form, err := submissionForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rc := requestContext(c)
	ctx := c.Request.Context()
	action := formValue(form, "action")

	var (
		result *dto.SubmissionResult
		entry  middleware.AuditEntry
	)
	switch action {
	case dto.ActionSaveSingleResult:
		req := singleResultFromForm(form)
		result, err = h.results.SaveSingle(ctx, rc, req)
		entry = middleware.AuditEntry{Action: models.AuditActionResultSave, Resource: "results", ResourceID: req.StudentID,
			Details: map[string]interface{}{"subject_id": req.SubjectID, "term": req.Term}}
	case dto.ActionSaveBatchResults:
		req := batchResultFromForm(form)
		result, err = h.results.SaveBatch(ctx, rc, req)
		entry = middleware.AuditEntry{Action: models.AuditActionResultSave, Resource: "classes", ResourceID: req.ClassID,
			Details: map[string]interface{}{"students": len(req.StudentIDs), "term": req.Term}}
	case dto.ActionSaveMultipleSubjects:
		req := multiSubjectFromForm(form)
		result, err = h.results.SaveMultiSubject(ctx, rc, req)
		entry = middleware.AuditEntry{Action: models.AuditActionResultSave, Resource: "students", ResourceID: req.StudentID,
			Details: map[string]interface{}{"subjects": len(req.Subjects), "term": req.Term}}
	case dto.ActionDeleteResult:
		req := dto.DeleteResultRequest{ResultID: formValue(form, "result_id"), ClassID: formValue(form, "class_id")}
		result, err = h.results.DeleteResult(ctx, rc, req)
		entry = middleware.AuditEntry{Action: models.AuditActionResultDelete, Resource: "results", ResourceID: req.ResultID,
			Details: map[string]interface{}{"class_id": req.ClassID}}
	case dto.ActionDeleteStudentResults:
		req := dto.DeleteStudentResultsRequest{StudentID: formValue(form, "student_id"), Term: formValue(form, "term")}
		result, err = h.results.DeleteStudentTerm(ctx, rc, req)
		entry = middleware.AuditEntry{Action: models.AuditActionStudentTermReset, Resource: "students", ResourceID: req.StudentID,
			Details: map[string]interface{}{"term": req.Term}}
	case dto.ActionResolveComplaint:
		h.resolve(c, rc, dto.ResolveComplaintRequest{
			ComplaintID: formValue(form, "complaint_id"),
			Response:    form.Get("response"),
		})
		return
	default:
		response.Error(c, appErrors.WithDetails(appErrors.ErrValidation, "unsupported action",
			[]string{fmt.Sprintf("action must be one of [%s]", strings.Join(supportedActions, " "))}))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	entry.Details["created"] = result.Created
	entry.Details["updated"] = result.Updated
	entry.Details["skipped"] = result.Skipped
	entry.Details["deleted"] = result.Deleted
	middleware.RecordAudit(c, entry)
	middleware.SetMeta(c, "action", result.Action)
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

func (h *ResultHandler) resolve(c *gin.Context, rc models.RequestContext, req dto.ResolveComplaintRequest) {
	detail, err := h.complaints.Resolve(c.Request.Context(), rc, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.RecordAudit(c, middleware.AuditEntry{
		Action:     models.AuditActionComplaintResolve,
		Resource:   "result_complaints",
		ResourceID: detail.ID,
		Details:    map[string]interface{}{"result_id": detail.ResultID},
	})
	middleware.SetMeta(c, "action", dto.ActionResolveComplaint)
	response.JSON(c, http.StatusOK, detail, middleware.ExtractMeta(c))
}

// List godoc
// @Summary List class results for a term
// @Tags Results
// @Produce json
// @Param classId query string true "Class ID"
// @Param term query string true "Term"
// @Success 200 {object} response.Envelope
// @Router /results [get]
func (h *ResultHandler) List(c *gin.Context) {
	query := resultQuery(c)
	items, err := h.reader.ListResults(c.Request.Context(), requestContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(items))
	response.JSON(c, http.StatusOK, items, middleware.ExtractMeta(c))
}

// Compiled godoc
// @Summary Compiled and pending students of a class
// @Tags Results
// @Produce json
// @Param classId query string true "Class ID"
// @Param term query string true "Term"
// @Success 200 {object} response.Envelope
// @Router /results/compiled [get]
func (h *ResultHandler) Compiled(c *gin.Context) {
	compilation, err := h.reader.Compile(c.Request.Context(), requestContext(c), resultQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "compiled", len(compilation.Compiled))
	middleware.SetMeta(c, "pending", len(compilation.Pending))
	response.JSON(c, http.StatusOK, compilation, middleware.ExtractMeta(c))
}

func resultQuery(c *gin.Context) dto.ResultListQuery {
	return dto.ResultListQuery{
		ClassID: strings.TrimSpace(c.Query("classId")),
		Term:    strings.TrimSpace(c.Query("term")),
	}
}
