package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/avetkin/flighttracker/internal/domain"
	"github.com/avetkin/flighttracker/internal/payment"
	"github.com/avetkin/flighttracker/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type startBookingRequest struct {
	FlightID int64 `json:"flight_id"`
}

type fieldUpdateRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type paymentCallbackRequest struct {
	OrderRef  string `json:"order_ref"`
	Kind      string `json:"kind"`
	PaymentID string `json:"payment_id"`
	Reason    string `json:"reason"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.start)
	router.GET("/history", h.history)
	router.GET("/:id", h.get)
	router.DELETE("/:id", h.discard)
	router.POST("/:id/passengers", h.addPassenger)
	router.PATCH("/:id/passengers/:index", h.updatePassenger)
	router.DELETE("/:id/passengers/:index", h.removePassenger)
	router.PATCH("/:id/contact", h.updateContact)
	router.POST("/:id/advance", h.advance)
	router.POST("/:id/retreat", h.retreat)
	router.POST("/:id/payment", h.submitPayment)
	router.POST("/:id/payment/demo", h.submitDemoPayment)
	router.POST("/:id/payment/callback", h.paymentCallback)
}

func (h *BookingHandler) start(c *gin.Context) {
	var req startBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attempt, err := h.service.StartBooking(c.Request.Context(), req.FlightID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, attempt)
}

func (h *BookingHandler) get(c *gin.Context) {
	attempt, err := h.service.GetAttempt(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

func (h *BookingHandler) discard(c *gin.Context) {
	if err := h.service.Discard(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BookingHandler) addPassenger(c *gin.Context) {
	attempt, err := h.service.AddPassenger(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

func (h *BookingHandler) updatePassenger(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return
	}

	var req fieldUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attempt, err := h.service.UpdatePassenger(c.Request.Context(), c.Param("id"), index, req.Field, req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

func (h *BookingHandler) removePassenger(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return
	}

	attempt, err := h.service.RemovePassenger(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

func (h *BookingHandler) updateContact(c *gin.Context) {
	var req fieldUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attempt, err := h.service.UpdateContact(c.Request.Context(), c.Param("id"), req.Field, req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

func (h *BookingHandler) advance(c *gin.Context) {
	attempt, err := h.service.Advance(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

func (h *BookingHandler) retreat(c *gin.Context) {
	attempt, err := h.service.Retreat(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

func (h *BookingHandler) submitPayment(c *gin.Context) {
	attempt, err := h.service.SubmitPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, attempt)
}

func (h *BookingHandler) submitDemoPayment(c *gin.Context) {
	attempt, err := h.service.SubmitDemoPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

// paymentCallback is the webhook the hosted checkout reports back
// through when it is not driven in-process. The reported order
// reference must match the open checkout.
func (h *BookingHandler) paymentCallback(c *gin.Context) {
	var req paymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attempt, err := h.service.ResolveCheckout(c.Request.Context(), c.Param("id"), req.OrderRef, payment.Outcome{
		Kind:      payment.OutcomeKind(req.Kind),
		PaymentID: req.PaymentID,
		Reason:    req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

func (h *BookingHandler) history(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	records, err := h.service.ListBookings(c.Request.Context(), email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrFlightNotFound),
		errors.Is(err, domain.ErrAttemptNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPaymentInProgress),
		errors.Is(err, domain.ErrCheckoutNotOpen),
		errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrNoCurrentUser):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNoPassengers),
		errors.Is(err, domain.ErrPassengerIndex),
		errors.Is(err, domain.ErrUnknownField),
		errors.Is(err, domain.ErrInvalidFieldValue),
		errors.Is(err, domain.ErrNotAtPaymentStep),
		errors.Is(err, domain.ErrPaymentRequired),
		errors.Is(err, domain.ErrPasswordMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
