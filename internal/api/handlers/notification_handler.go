package handlers

import (
	"errors"
	"net/http"

	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/api/dto"
	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/api/middleware"
	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/domain/notification"
	"github.com/PierluigiRizzuExagon/framework-gestionali/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// NotificationHandler handles notification-related requests
type NotificationHandler struct {
	service  notification.Service
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(service notification.Service, logger *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in development
			},
		},
	}
}

// respondError maps domain errors to HTTP statuses
func (h *NotificationHandler) respondError(c *gin.Context, err error, fallback string) {
	var validationErr *notification.ValidationError
	var notFoundErr *notification.NotFoundError
	var storeErr *notification.StoreUnavailableError

	switch {
	case errors.Is(err, notification.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "User not authenticated"})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: validationErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: notFoundErr.Error()})
	case errors.As(err, &storeErr):
		h.logger.Error("Store unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Service temporarily unavailable, retry later"})
	default:
		h.logger.Error(fallback, zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: fallback})
	}
}

// parseKind reads the kind path parameter ("standard" or "message")
func parseKind(c *gin.Context) (notification.Kind, bool) {
	kind := notification.Kind(c.Param("kind"))
	return kind, kind.Valid()
}

// optionalKind reads the optional kind query parameter
func optionalKind(c *gin.Context) (*notification.Kind, bool) {
	raw := c.Query("kind")
	if raw == "" {
		return nil, true
	}
	kind := notification.Kind(raw)
	if !kind.Valid() {
		return nil, false
	}
	return &kind, true
}

// Feed godoc
// @Summary Get the caller's notification feed
// @Description Ordered notifications of one kind with per-user read state
// @Tags notifications
// @Produce json
// @Param kind path string true "Feed kind (standard|message)"
// @Security BearerAuth
// @Success 200 {object} dto.FeedResponse
// @Router /api/notifications/feed/{kind} [get]
func (h *NotificationHandler) Feed(c *gin.Context) {
	uc, exists := middleware.CurrentUser(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "User not authenticated"})
		return
	}

	kind, ok := parseKind(c)
	if !ok {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid feed kind"})
		return
	}

	items, err := h.service.Feed(c.Request.Context(), uc, kind)
	if err != nil {
		h.respondError(c, err, "Failed to get feed")
		return
	}

	// Counting the returned items keeps the count consistent with the feed
	// even when a concurrent mark lands between here and the response
	var unread int64
	for _, item := range items {
		if !item.IsRead {
			unread++
		}
	}

	c.JSON(http.StatusOK, dto.FeedResponse{
		Items:       dto.ToDTOs(items),
		UnreadCount: unread,
	})
}

// CountUnread godoc
// @Summary Count unread notifications
// @Description Unread count for the caller, optionally filtered by kind
// @Tags notifications
// @Produce json
// @Param kind query string false "Kind filter (standard|message)"
// @Security BearerAuth
// @Success 200 {object} dto.UnreadCountResponse
// @Router /api/notifications/count [get]
func (h *NotificationHandler) CountUnread(c *gin.Context) {
	uc, exists := middleware.CurrentUser(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "User not authenticated"})
		return
	}

	kind, ok := optionalKind(c)
	if !ok {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid kind filter"})
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), uc, kind)
	if err != nil {
		h.respondError(c, err, "Failed to count unread notifications")
		return
	}

	c.JSON(http.StatusOK, dto.UnreadCountResponse{UnreadCount: count})
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Description Idempotent: repeated calls succeed and report already_read
// @Tags notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Security BearerAuth
// @Success 200 {object} dto.MarkReadResponse
// @Router /api/notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	uc, exists := middleware.CurrentUser(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "User not authenticated"})
		return
	}

	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid notification ID"})
		return
	}

	alreadyRead, err := h.service.MarkRead(c.Request.Context(), uc, notificationID)
	if err != nil {
		h.respondError(c, err, "Failed to mark notification as read")
		return
	}

	c.JSON(http.StatusOK, dto.MarkReadResponse{AlreadyRead: alreadyRead})
}

// MarkAllRead godoc
// @Summary Mark all notifications as read
// @Description Marks every visible unread notification, optionally of one kind
// @Tags notifications
// @Produce json
// @Param kind query string false "Kind filter (standard|message)"
// @Security BearerAuth
// @Success 200 {object} dto.MarkAllReadResponse
// @Router /api/notifications/read-all [put]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	uc, exists := middleware.CurrentUser(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "User not authenticated"})
		return
	}

	kind, ok := optionalKind(c)
	if !ok {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid kind filter"})
		return
	}

	marked, err := h.service.MarkAllRead(c.Request.Context(), uc, kind)
	if err != nil {
		h.respondError(c, err, "Failed to mark all notifications as read")
		return
	}

	c.JSON(http.StatusOK, dto.MarkAllReadResponse{MarkedCount: marked})
}

// Publish godoc
// @Summary Publish a notification
// @Description Creates one immutable notification for a global, role or user audience
// @Tags notifications
// @Accept json
// @Produce json
// @Param request body dto.PublishRequest true "Notification to publish"
// @Security BearerAuth
// @Success 201 {object} dto.PublishResponse
// @Router /api/notifications [post]
func (h *NotificationHandler) Publish(c *gin.Context) {
	if _, exists := middleware.CurrentUser(c); !exists {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req dto.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	priority, ok := dto.ParsePriority(req.Priority)
	if !ok {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid priority"})
		return
	}
	kind := notification.Kind(req.Kind)

	var created *notification.Notification
	var err error

	switch notification.TargetScope(req.TargetScope) {
	case notification.ScopeGlobal:
		if req.TargetID != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "target_id must be absent for global notifications"})
			return
		}
		created, err = h.service.PublishGlobal(c.Request.Context(), req.Title, req.Body, kind, priority)
	case notification.ScopeRole:
		if req.TargetID == nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "target_id is required for role notifications"})
			return
		}
		created, err = h.service.PublishToRole(c.Request.Context(), *req.TargetID, req.Title, req.Body, kind, priority)
	case notification.ScopeUser:
		if req.TargetID == nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "target_id is required for user notifications"})
			return
		}
		created, err = h.service.PublishToUser(c.Request.Context(), *req.TargetID, req.Title, req.Body, kind, priority)
	default:
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid target scope"})
		return
	}

	if err != nil {
		h.respondError(c, err, "Failed to publish notification")
		return
	}

	c.JSON(http.StatusCreated, dto.PublishResponse{NotificationID: created.ID})
}

// WebSocketHandler streams live notifications addressed to the caller
func (h *NotificationHandler) WebSocketHandler(c *gin.Context) {
	uc, exists := middleware.CurrentUser(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "User not authenticated"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket connection", zap.Error(err))
		return
	}
	defer conn.Close()

	ch, cancel, err := h.service.Subscribe(uc)
	if err != nil {
		h.logger.Error("Failed to subscribe to notifications", zap.Error(err))
		return
	}
	defer cancel()

	// Reader goroutine only watches for the client going away
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case n := <-ch:
			if err := conn.WriteJSON(n); err != nil {
				h.logger.Warn("Failed to write notification to websocket", zap.Error(err))
				return
			}
		case <-done:
			return
		}
	}
}
