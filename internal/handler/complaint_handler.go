package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/dto"
	"github.com/noah-isme/sma-results-api/internal/middleware"
	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/response"
)

// ComplaintHandler exposes complaint listing and resolution.
type ComplaintHandler struct {
	service complaintResolver
}

// NewComplaintHandler constructs ComplaintHandler.
func NewComplaintHandler(service complaintResolver) *ComplaintHandler {
	return &ComplaintHandler{service: service}
}

type resolveComplaintPayload struct {
	Response string `json:"response" form:"response"`
}

// List godoc
// @Summary List complaints raised against a class's results
// @Tags Complaints
// @Produce json
// @Param classId query string true "Class ID"
// @Param status query string false "open | resolved"
// @Success 200 {object} response.Envelope
// @Router /complaints [get]
func (h *ComplaintHandler) List(c *gin.Context) {
	status := models.ComplaintStatus(strings.ToLower(strings.TrimSpace(c.Query("status"))))
	items, err := h.service.ListForClass(c.Request.Context(), requestContext(c), strings.TrimSpace(c.Query("classId")), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(items))
	response.JSON(c, http.StatusOK, items, middleware.ExtractMeta(c))
}

// Resolve godoc
// @Summary Resolve a complaint with a teacher response
// @Tags Complaints
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body resolveComplaintPayload true "Teacher response"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /complaints/{id}/resolve [post]
func (h *ComplaintHandler) Resolve(c *gin.Context) {
	var payload resolveComplaintPayload
	if err := c.ShouldBind(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	detail, err := h.service.Resolve(c.Request.Context(), requestContext(c), dto.ResolveComplaintRequest{
		ComplaintID: c.Param("id"),
		Response:    payload.Response,
	})
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
	response.JSON(c, http.StatusOK, detail, middleware.ExtractMeta(c))
}
