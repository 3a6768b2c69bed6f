package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/galvin1912/auction-web-app/internal/domain"
	"github.com/galvin1912/auction-web-app/internal/services"
	"github.com/galvin1912/auction-web-app/pkg/logger"
)

// ProfileHandler serves the per-user surface: watchlist and notifications.
type ProfileHandler struct {
	watchlist     *services.WatchlistService
	notifications *services.NotificationService
	log           logger.Logger
}

func NewProfileHandler(
	watchlist *services.WatchlistService,
	notifications *services.NotificationService,
	log logger.Logger,
) *ProfileHandler {
	return &ProfileHandler{
		watchlist:     watchlist,
		notifications: notifications,
		log:           log,
	}
}

func (h *ProfileHandler) AddToWatchlist(c echo.Context) error {
	userID := c.Param("id")
	auctionID := c.Param("auctionID")

	item, err := h.watchlist.AddToWatchlist(c.Request().Context(), userID, auctionID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Auction not found"})
		case errors.Is(err, services.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.log.Error("Failed to add watch", "user_id", userID, "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update watchlist"})
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"watch_id":   item.ID,
		"auction_id": item.AuctionID,
	})
}

func (h *ProfileHandler) RemoveFromWatchlist(c echo.Context) error {
	userID := c.Param("id")
	auctionID := c.Param("auctionID")

	if err := h.watchlist.RemoveFromWatchlist(c.Request().Context(), userID, auctionID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Not on watchlist"})
		}
		h.log.Error("Failed to remove watch", "user_id", userID, "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update watchlist"})
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *ProfileHandler) ListWatchlist(c echo.Context) error {
	userID := c.Param("id")

	auctions, err := h.watchlist.ListWatchlist(c.Request().Context(), userID)
	if err != nil {
		h.log.Error("Failed to list watchlist", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list watchlist"})
	}

	responses := make([]AuctionResponse, 0, len(auctions))
	for _, auction := range auctions {
		responses = append(responses, auctionResponse(auction))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"auctions": responses,
		"count":    len(responses),
	})
}

func (h *ProfileHandler) ListNotifications(c echo.Context) error {
	userID := c.Param("id")

	limit := 0
	bindInt(c.QueryParam("limit"), &limit)

	notifications, err := h.notifications.ListNotifications(c.Request().Context(), userID, limit)
	if err != nil {
		h.log.Error("Failed to list notifications", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list notifications"})
	}

	type notificationResponse struct {
		ID        string `json:"id"`
		AuctionID string `json:"auction_id,omitempty"`
		Type      string `json:"type"`
		Title     string `json:"title"`
		Message   string `json:"message"`
		Read      bool   `json:"read"`
	}

	responses := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		responses = append(responses, notificationResponse{
			ID:        n.ID,
			AuctionID: n.AuctionID,
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			Read:      n.Read,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": responses,
		"count":         len(responses),
	})
}

func (h *ProfileHandler) UnreadCount(c echo.Context) error {
	userID := c.Param("id")

	count, err := h.notifications.UnreadCount(c.Request().Context(), userID)
	if err != nil {
		h.log.Error("Failed to count unread", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to count notifications"})
	}

	return c.JSON(http.StatusOK, map[string]int{"unread": count})
}

func (h *ProfileHandler) MarkNotificationRead(c echo.Context) error {
	userID := c.Param("id")
	notificationID := c.Param("notificationID")

	if err := h.notifications.MarkRead(c.Request().Context(), notificationID, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Notification not found"})
		}
		h.log.Error("Failed to mark notification read", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update notification"})
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *ProfileHandler) MarkAllNotificationsRead(c echo.Context) error {
	userID := c.Param("id")

	if err := h.notifications.MarkAllRead(c.Request().Context(), userID); err != nil {
		h.log.Error("Failed to mark notifications read", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update notifications"})
	}

	return c.NoContent(http.StatusNoContent)
}
