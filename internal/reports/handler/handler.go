// Package handler provides HTTP handlers for service reports.
package handler

import (
	"net/http"

	"pestcontrol_backend/internal/reports/service"
	"pestcontrol_backend/internal/reports/transport"
	"pestcontrol_backend/platform/httpkit"
	"pestcontrol_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"
)

// Handler handles HTTP requests for reports and their sub-entities.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new reports handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the report routes. Review actions require the
// admin role.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.POST("/complete", h.Complete)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/submit", h.Submit)
	rg.PUT("/:id/resubmit", h.Resubmit)

	rg.POST("/:id/bait-stations", h.AddStation)
	rg.PUT("/:id/bait-stations/:stationId", h.UpdateStation)
	rg.DELETE("/:id/bait-stations/:stationId", h.DeleteStation)
	rg.POST("/:id/insect-monitors", h.AddMonitor)
	rg.PUT("/:id/insect-monitors/:monitorId", h.UpdateMonitor)
	rg.DELETE("/:id/insect-monitors/:monitorId", h.DeleteMonitor)
	rg.PUT("/:id/fumigation", h.ReplaceFumigation)

	review := rg.Group("", httpkit.RequireRole(httpkit.RoleAdmin))
	review.POST("/:id/approve", h.Approve)
	review.POST("/:id/decline", h.Decline)
	review.POST("/:id/force-decline", h.ForceDecline)
	review.POST("/:id/archive", h.Archive)
}

// RegisterAdminRoutes registers the admin edit route under the admin group.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.PUT("/:id", h.AdminEdit)
}

func (h *Handler) actor(c *gin.Context) (service.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return service.Actor{}, false
	}
	return service.Actor{UserID: identity.UserID(), IsAdmin: identity.HasRole(httpkit.RoleAdmin)}, true
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if !httpkit.BindJSON(c, req) {
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Messages(err))
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}

// Create handles POST /api/v1/reports
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateReportRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

// Complete handles POST /api/v1/reports/complete
func (h *Handler) Complete(c *gin.Context) {
	var req transport.CompleteReportRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := h.svc.Complete(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

// Get handles GET /api/v1/reports/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := h.svc.Get(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// Update handles PUT /api/v1/reports/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transport.UpdateReportRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := h.svc.Update(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// Delete handles DELETE /api/v1/reports/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), actor, id)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// Submit handles POST /api/v1/reports/:id/submit
func (h *Handler) Submit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := h.svc.Submit(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// Resubmit handles PUT /api/v1/reports/:id/resubmit
func (h *Handler) Resubmit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transport.ResubmitReportRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := h.svc.Resubmit(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// AddStation handles POST /api/v1/reports/:id/bait-stations
func (h *Handler) AddStation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transport.BaitStationRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := h.svc.AddStation(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

// UpdateStation handles PUT /api/v1/reports/:id/bait-stations/:stationId
func (h *Handler) UpdateStation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	stationID, ok := pathID(c, "stationId")
	if !ok {
		return
	}
	var req transport.BaitStationRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := h.svc.UpdateStation(c.Request.Context(), actor, id, stationID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// DeleteStation handles DELETE /api/v1/reports/:id/bait-stations/:stationId
func (h *Handler) DeleteStation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	stationID, ok := pathID(c, "stationId")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.DeleteStation(c.Request.Context(), actor, id, stationID)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// AddMonitor handles POST /api/v1/reports/:id/insect-monitors
func (h *Handler) AddMonitor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transport.InsectMonitorRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := h.svc.AddMonitor(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

// UpdateMonitor handles PUT /api/v1/reports/:id/insect-monitors/:monitorId
func (h *Handler) UpdateMonitor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	monitorID, ok := pathID(c, "monitorId")
	if !ok {
		return
	}
	var req transport.InsectMonitorRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := h.svc.UpdateMonitor(c.Request.Context(), actor, id, monitorID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// DeleteMonitor handles DELETE /api/v1/reports/:id/insect-monitors/:monitorId
func (h *Handler) DeleteMonitor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	monitorID, ok := pathID(c, "monitorId")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.DeleteMonitor(c.Request.Context(), actor, id, monitorID)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// ReplaceFumigation handles PUT /api/v1/reports/:id/fumigation
func (h *Handler) ReplaceFumigation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transport.FumigationRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := h.svc.ReplaceFumigation(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// AdminEdit handles PUT /api/v1/admin/reports/:id
func (h *Handler) AdminEdit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transport.AdminUpdateReportRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := h.svc.AdminEdit(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// Approve handles POST /api/v1/reports/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transport.ApproveReportRequest
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := h.svc.Approve(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// Decline handles POST /api/v1/reports/:id/decline
func (h *Handler) Decline(c *gin.Context) {
	h.decline(c, false)
}

// ForceDecline handles POST /api/v1/reports/:id/force-decline
func (h *Handler) ForceDecline(c *gin.Context) {
	h.decline(c, true)
}

func (h *Handler) decline(c *gin.Context, force bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transport.DeclineReportRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := h.svc.Decline(c.Request.Context(), actor, id, req, force)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// Archive handles POST /api/v1/reports/:id/archive
func (h *Handler) Archive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := h.svc.Archive(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}
