package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/druksewa/marketplace/internal/core/domain"
	"github.com/druksewa/marketplace/internal/core/ports"
)

type NotificationHandler struct {
	bus ports.NotificationBus
}

func NewNotificationHandler(bus ports.NotificationBus) *NotificationHandler {
	return &NotificationHandler{bus: bus}
}

// List handles GET /notifications. Back-office sessions read the admin log;
// everyone else reads entries addressed to them.
//
// @Summary      Notifications for the caller
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        after  query     int  false  "Only entries with a greater sequence number"
// @Success      200    {object}  notificationListResponse
// @Failure      400    {object}  errorResponse
// @Failure      401    {object}  errorResponse
// @Router       /notifications [get]
func (h *NotificationHandler) List(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}

	var after int64
	if raw := c.QueryParam("after"); raw != "" {
		after, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || after < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "after must be a non-negative integer")
		}
	}

	var list []*domain.Notification
	if sess.Role.IsBackOffice() {
		list, err = h.bus.ListFor(c.Request().Context(), domain.RoleAdmin, after)
	} else {
		list, err = h.bus.ListForUser(c.Request().Context(), sess.UserID, after)
	}
	if err != nil {
		return err
	}

	resp := notificationListResponse{Notifications: list, LastSeq: after}
	if resp.Notifications == nil {
		resp.Notifications = []*domain.Notification{}
	}
	if n := len(list); n > 0 {
		resp.LastSeq = list[n-1].Seq
	}
	return c.JSON(http.StatusOK, resp)
}
