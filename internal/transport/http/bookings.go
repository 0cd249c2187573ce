package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Dracarys0904/ServiceGo/internal/booking"
	"github.com/Dracarys0904/ServiceGo/internal/bookingform"
	"github.com/Dracarys0904/ServiceGo/internal/domain"
)

type BookingHandler struct {
	sync *booking.Synchronizer
	flow *bookingform.Flow
}

func NewBookingHandler(sync *booking.Synchronizer, flow *bookingform.Flow) *BookingHandler {
	return &BookingHandler{sync: sync, flow: flow}
}

// GET /v1/bookings
func (h *BookingHandler) List(c *gin.Context) {
	bookings, err := h.sync.List(c.Request.Context(), currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// POST /v1/bookings (customer only)
func (h *BookingHandler) Create(c *gin.Context) {
	var in struct {
		ServiceID string `json:"service_id" binding:"required"`
		Date      string `json:"booking_date" binding:"required"`
		TimeSlot  string `json:"booking_time" binding:"required"`
		Message   string `json:"message"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := h.flow.Submit(c.Request.Context(), currentActor(c), bookingform.Form{
		ServiceID: in.ServiceID,
		Date:      in.Date,
		TimeSlot:  in.TimeSlot,
		Message:   in.Message,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": b})
}

// GET /v1/bookings/summary?service_id=&booking_date=&booking_time=
func (h *BookingHandler) Summary(c *gin.Context) {
	summary, err := h.flow.Summary(bookingform.Form{
		ServiceID: c.Query("service_id"),
		Date:      c.Query("booking_date"),
		TimeSlot:  c.Query("booking_time"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary, "time_slots": bookingform.TimeSlots})
}

// POST /v1/bookings/:id/status
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	var in struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := h.sync.UpdateStatus(c.Request.Context(), currentActor(c), c.Param("id"), domain.BookingStatus(in.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}
