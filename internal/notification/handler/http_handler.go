// Package handler serves the in-app notification inbox.
package handler

import (
	"context"
	"net/http"

	"pestcontrol_backend/internal/notification/inapp"
	"pestcontrol_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidID    = "invalid id"
	msgInvalidQuery = "invalid query"
)

type listQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// ListResponse is one page of the caller's inbox.
type ListResponse struct {
	Items    []inapp.Notification `json:"items"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

type unreadResponse struct {
	Count int `json:"count"`
}

// HTTPHandler exposes the notification service to the authenticated user.
type HTTPHandler struct {
	svc *inapp.Service
}

func NewHTTPHandler(svc *inapp.Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/unread", h.CountUnread)
	rg.PATCH("/read-all", h.MarkAllRead)
	rg.PATCH("/:id/read", h.MarkRead)
	rg.DELETE("/:id", h.Delete)
}

// List handles GET /api/v1/notifications?page=&page_size=
func (h *HTTPHandler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidQuery, err.Error())
		return
	}

	page, size := inapp.Paging(q.Page, q.PageSize)
	items, total, err := h.svc.List(c.Request.Context(), identity.UserID(), page, size)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, ListResponse{Items: items, Total: total, Page: page, PageSize: size})
}

// CountUnread handles GET /api/v1/notifications/unread
func (h *HTTPHandler) CountUnread(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	count, err := h.svc.CountUnread(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, unreadResponse{Count: count})
}

// MarkRead handles PATCH /api/v1/notifications/:id/read
func (h *HTTPHandler) MarkRead(c *gin.Context) {
	h.withNotification(c, h.svc.MarkRead, http.StatusNoContent)
}

// MarkAllRead handles PATCH /api/v1/notifications/read-all
func (h *HTTPHandler) MarkAllRead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	if httpkit.HandleError(c, h.svc.MarkAllRead(c.Request.Context(), identity.UserID())) {
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete handles DELETE /api/v1/notifications/:id
func (h *HTTPHandler) Delete(c *gin.Context) {
	h.withNotification(c, h.svc.Delete, http.StatusNoContent)
}

// withNotification runs op on the notification named by the :id path
// parameter, scoped to the caller.
func (h *HTTPHandler) withNotification(c *gin.Context, op func(ctx context.Context, userID, id uuid.UUID) error, status int) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	if httpkit.HandleError(c, op(c.Request.Context(), identity.UserID(), id)) {
		return
	}
	c.Status(status)
}
