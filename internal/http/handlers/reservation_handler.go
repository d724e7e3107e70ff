// README: Reservation handlers for customers (book, view, cancel) and admins (confirm, complete, list).
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"chauffeur/internal/http/middleware"
	"chauffeur/internal/modules/reservation"
	"chauffeur/internal/types"
)

type ReservationHandler struct {
	reservations *reservation.Service
}

func NewReservationHandler(svc *reservation.Service) *ReservationHandler {
	return &ReservationHandler{reservations: svc}
}

type createReservationReq struct {
	CustomerName     string    `json:"customer_name"`
	CustomerEmail    string    `json:"customer_email"`
	CustomerPhone    string    `json:"customer_phone"`
	DepartureAddress string    `json:"departure_address"`
	ArrivalAddress   string    `json:"arrival_address"`
	PickupAt         time.Time `json:"pickup_at"`
	Passengers       int       `json:"passengers"`
	Luggage          int       `json:"luggage"`
	Notes            string    `json:"notes"`
	DistanceKm       *float64  `json:"distance_km"`
}

type cancelReservationReq struct {
	Reason string `json:"reason"`
}

func (h *ReservationHandler) Create(c *gin.Context) {
	var req createReservationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	r, err := h.reservations.Create(c.Request.Context(), reservation.CreateCommand{
		CustomerID:       middleware.CallerUID(c),
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		CustomerPhone:    req.CustomerPhone,
		DepartureAddress: req.DepartureAddress,
		ArrivalAddress:   req.ArrivalAddress,
		PickupAt:         req.PickupAt,
		Passengers:       req.Passengers,
		Luggage:          req.Luggage,
		Notes:            req.Notes,
		DistanceKm:       req.DistanceKm,
	})
	if err != nil {
		writeReservationError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

func (h *ReservationHandler) Get(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}
	var (
		r   *reservation.Reservation
		err error
	)
	if middleware.IsAdmin(c) {
		r, err = h.reservations.Get(c.Request.Context(), id)
	} else {
		r, err = h.reservations.GetForCustomer(c.Request.Context(), id, middleware.CallerUID(c))
	}
	if err != nil {
		writeReservationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

// Mine lists the caller's own reservations, newest first.
func (h *ReservationHandler) Mine(c *gin.Context) {
	h.list(c, middleware.CallerUID(c))
}

func (h *ReservationHandler) Cancel(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}
	var req cancelReservationReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "bad_request", "invalid json")
			return
		}
	}
	r, err := h.reservations.Cancel(c.Request.Context(), h.command(c, id, req.Reason))
	if err != nil {
		writeReservationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *ReservationHandler) Confirm(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}
	r, err := h.reservations.Confirm(c.Request.Context(), h.command(c, id, ""))
	if err != nil {
		writeReservationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *ReservationHandler) Complete(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}
	r, err := h.reservations.Complete(c.Request.Context(), h.command(c, id, ""))
	if err != nil {
		writeReservationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *ReservationHandler) List(c *gin.Context) {
	h.list(c, c.Query("customer_id"))
}

func (h *ReservationHandler) list(c *gin.Context, customerID string) {
	f := reservation.ListFilter{
		Status:     reservation.Status(c.Query("status")),
		CustomerID: customerID,
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(c, http.StatusBadRequest, "bad_request", "invalid limit")
			return
		}
		f.Limit = n
	}
	rs, err := h.reservations.List(c.Request.Context(), f)
	if err != nil {
		writeReservationError(c, err)
		return
	}
	if rs == nil {
		rs = []reservation.Reservation{}
	}
	writeJSON(c, http.StatusOK, gin.H{"reservations": rs})
}

func (h *ReservationHandler) command(c *gin.Context, id types.ID, reason string) reservation.TransitionCommand {
	actor := reservation.ActorCustomer
	if middleware.IsAdmin(c) {
		actor = reservation.ActorAdmin
	}
	return reservation.TransitionCommand{
		ID:        id,
		ActorType: actor,
		ActorID:   middleware.CallerUID(c),
		Reason:    reason,
	}
}

func reservationID(c *gin.Context) (types.ID, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "bad_request", "invalid reservation id")
		return "", false
	}
	return types.ID(id), true
}
