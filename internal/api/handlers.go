package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
	"github.com/Eo-0118/Black-Kingdom/internal/reservation"
	"github.com/Eo-0118/Black-Kingdom/internal/service"
)

// AuthService is the account surface used by the handlers.
type AuthService interface {
	Register(ctx context.Context, req service.SignupRequest) (*service.AuthResult, error)
	Authenticate(ctx context.Context, req service.LoginRequest) (*service.AuthResult, error)
	Me(ctx context.Context, identity *models.Identity) (*models.User, error)
	LinkTelegram(ctx context.Context, identity *models.Identity, chatID int64) (*models.User, error)
}

// ReservationService is the reservation surface used by the handlers.
type ReservationService interface {
	Submit(ctx context.Context, identity *models.Identity, form reservation.Form) (*models.Reservation, error)
	ListByShop(ctx context.Context, identity *models.Identity, shopID int64, bucket reservation.Bucket) ([]models.ShopReservation, error)
	ListMine(ctx context.Context, identity *models.Identity, bucket reservation.Bucket) ([]models.Reservation, error)
	UpdateStatus(ctx context.Context, identity *models.Identity, id, rawStatus string) (*models.Reservation, error)
	ListShops(ctx context.Context) ([]models.Shop, error)
	MyShops(ctx context.Context, identity *models.Identity) ([]models.Shop, error)
	Slots(ctx context.Context, shopID int64, date string) (*service.SlotsView, error)
}

// CreateReservationRequest is the body of POST /api/reservations. The
// customer is taken from the token, never from the body.
type CreateReservationRequest struct {
	ShopID     int64  `json:"shop_id"`
	VisitDate  string `json:"visit_date"`
	VisitTime  string `json:"visit_time"`
	PartySize  int    `json:"party_size"`
	GuestName  string `json:"guest_name"`
	GuestPhone string `json:"guest_phone"`
	Requests   string `json:"requests"`
}

// LinkTelegramRequest is the body of PUT /api/auth/me/telegram.
type LinkTelegramRequest struct {
	ChatID int64 `json:"telegram_chat_id"`
}

// UpdateStatusRequest is the body of PATCH /api/reservations/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func signup(svc AuthService, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.SignupRequest
		if !bindJSON(c, logger, &req) {
			return
		}
		res, err := svc.Register(c.Request.Context(), req)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, res)
	}
}

func login(svc AuthService, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.LoginRequest
		if !bindJSON(c, logger, &req) {
			return
		}
		res, err := svc.Authenticate(c.Request.Context(), req)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func me(svc AuthService, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := svc.Me(c.Request.Context(), identityFrom(c))
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func linkTelegram(svc AuthService, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LinkTelegramRequest
		if !bindJSON(c, logger, &req) {
			return
		}
		user, err := svc.LinkTelegram(c.Request.Context(), identityFrom(c), req.ChatID)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func createReservation(svc ReservationService, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateReservationRequest
		if !bindJSON(c, logger, &req) {
			return
		}
		r, err := svc.Submit(c.Request.Context(), identityFrom(c), reservation.Form{
			ShopID:     req.ShopID,
			VisitDate:  req.VisitDate,
			VisitTime:  req.VisitTime,
			PartySize:  req.PartySize,
			GuestName:  req.GuestName,
			GuestPhone: req.GuestPhone,
			Requests:   req.Requests,
		})
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, r)
	}
}

func listShopReservations(svc ReservationService, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopID, ok := pathID(c, logger, "shopId")
		if !ok {
			return
		}
		bucket, ok := queryBucket(c, logger)
		if !ok {
			return
		}
		rows, err := svc.ListByShop(c.Request.Context(), identityFrom(c), shopID, bucket)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func listMyReservations(svc ReservationService, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		bucket, ok := queryBucket(c, logger)
		if !ok {
			return
		}
		list, err := svc.ListMine(c.Request.Context(), identityFrom(c), bucket)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func updateReservationStatus(svc ReservationService, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateStatusRequest
		if !bindJSON(c, logger, &req) {
			return
		}
		r, err := svc.UpdateStatus(c.Request.Context(), identityFrom(c), c.Param("id"), req.Status)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, r)
	}
}

func listShops(svc ReservationService, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shops, err := svc.ListShops(c.Request.Context())
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, shops)
	}
}

func myShops(svc ReservationService, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shops, err := svc.MyShops(c.Request.Context(), identityFrom(c))
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, shops)
	}
}

func shopSlots(svc ReservationService, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopID, ok := pathID(c, logger, "shopId")
		if !ok {
			return
		}
		view, err := svc.Slots(c.Request.Context(), shopID, c.Query("date"))
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func bindJSON(c *gin.Context, logger *zerolog.Logger, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		writeError(c, logger, &models.ValidationError{Field: "body", Message: "request body must be valid JSON"})
		return false
	}
	return true
}

func pathID(c *gin.Context, logger *zerolog.Logger, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, logger, &models.ValidationError{Field: name, Message: name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}

func queryBucket(c *gin.Context, logger *zerolog.Logger) (reservation.Bucket, bool) {
	raw := c.Query("bucket")
	if raw == "" {
		return "", true
	}
	bucket, err := reservation.ParseBucket(raw)
	if err != nil {
		writeError(c, logger, err)
		return "", false
	}
	return bucket, true
}
