package handler

import (
	"net/http"

	"pestcontrol_backend/internal/assignments/domain"
	"pestcontrol_backend/internal/assignments/service"
	"pestcontrol_backend/internal/assignments/transport"
	"pestcontrol_backend/platform/httpkit"
	"pestcontrol_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles admin HTTP requests for assignments.
type Handler struct {
	mgr *service.Manager
	val *validator.Validator
}

// New creates a new assignments handler.
func New(mgr *service.Manager, val *validator.Validator) *Handler {
	return &Handler{mgr: mgr, val: val}
}

// RegisterRoutes registers the admin assignment routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Assign)
	rg.DELETE("/:clientId", h.Unassign)
}

// Assign handles POST /api/v1/admin/assignments
func (h *Handler) Assign(c *gin.Context) {
	var req transport.AssignRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Messages(err))
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	a, err := h.mgr.Assign(c.Request.Context(), req.ClientID, req.PcoID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, toResponse(a))
}

// List handles GET /api/v1/admin/assignments?client_id=
func (h *Handler) List(c *gin.Context) {
	var req transport.ListAssignmentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Messages(err))
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	rows, err := h.mgr.List(c.Request.Context(), clientID)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.AssignmentResponse, 0, len(rows))
	for _, a := range rows {
		items = append(items, toResponse(a))
	}
	httpkit.OK(c, transport.AssignmentListResponse{Items: items})
}

// Unassign handles DELETE /api/v1/admin/assignments/:clientId
func (h *Handler) Unassign(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("clientId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if httpkit.HandleError(c, h.mgr.Unassign(c.Request.Context(), clientID, identity.UserID())) {
		return
	}
	c.Status(http.StatusNoContent)
}

func toResponse(a domain.Assignment) transport.AssignmentResponse {
	return transport.AssignmentResponse{
		ID:           a.ID,
		ClientID:     a.ClientID,
		PcoID:        a.PcoID,
		AssignedBy:   a.AssignedBy,
		AssignedAt:   a.AssignedAt,
		UnassignedAt: a.UnassignedAt,
		UnassignedBy: a.UnassignedBy,
		Status:       string(a.Status),
	}
}
