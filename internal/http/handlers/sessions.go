package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mentorway/mentorway-be/internal/booking"
	"github.com/mentorway/mentorway-be/internal/http/respond"
	"github.com/mentorway/mentorway-be/internal/middleware"
	"github.com/mentorway/mentorway-be/internal/models/dto"
)

// SessionsHandler exposes the booking state machine and its reporting reads.
type SessionsHandler struct {
	svc *booking.Service
}

// NewSessionsHandler constructs the handler.
func NewSessionsHandler(svc *booking.Service) *SessionsHandler {
	return &SessionsHandler{svc: svc}
}

// Register attaches session routes to the mux. All routes assume the auth
// middleware already ran.
func (h *SessionsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/session/booking", h.handleBook)
	mux.HandleFunc("PATCH /api/session/rescheduled/{id}", h.handleReschedule)
	mux.HandleFunc("PATCH /api/session/cancel/{id}", h.handleCancel)
	mux.HandleFunc("GET /api/session/all/bymentor", h.handleByMentor)
	mux.HandleFunc("GET /api/session/all/byclient", h.handleByClient)
	mux.HandleFunc("GET /api/session/nextSession/bymentor", h.handleNextByMentor)
	mux.HandleFunc("GET /api/session/nextSessionbyclient", h.handleNextByClient)
	mux.HandleFunc("GET /api/session/previousWeek", h.handlePreviousWeek)
	mux.HandleFunc("GET /api/session/clientpreviousWeek", h.handleClientPreviousWeek)
	mux.HandleFunc("GET /api/session/sessionstats", h.handleStats)
}

func (h *SessionsHandler) handleBook(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	var req dto.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	sess, err := h.svc.Book(r.Context(), identity.UserID, booking.BookRequest{
		MentorID:    req.MentorID,
		StartTime:   req.StartTime,
		Hours:       req.Hours,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "session booked", map[string]int64{"sessionId": sess.ID})
}

func (h *SessionsHandler) handleReschedule(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	sessionID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	var req dto.RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	sess, err := h.svc.Reschedule(r.Context(), identity.UserID, sessionID, req.StartTime, req.Hours)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "session rescheduled", sess)
}

func (h *SessionsHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	sessionID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	sess, refund, err := h.svc.Cancel(r.Context(), identity.UserID, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.Data(w, http.StatusOK, dto.CancelResponse{
		Session: sess,
		Refund: dto.RefundResult{
			SessionID: refund.SessionID,
			Amount:    refund.Amount,
			Status:    refund.Status,
		},
	})
}

func (h *SessionsHandler) handleByMentor(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	sessions, err := h.svc.SessionsByMentor(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.Data(w, http.StatusOK, sessions)
}

func (h *SessionsHandler) handleByClient(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	sessions, err := h.svc.SessionsByClient(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.Data(w, http.StatusOK, sessions)
}

func (h *SessionsHandler) handleNextByMentor(w http.ResponseWriter, r *http.Request) {
	h.nextSession(w, r, true)
}

func (h *SessionsHandler) handleNextByClient(w http.ResponseWriter, r *http.Request) {
	h.nextSession(w, r, false)
}

func (h *SessionsHandler) nextSession(w http.ResponseWriter, r *http.Request, asMentor bool) {
	identity, _ := middleware.IdentityFrom(r.Context())
	sess, err := h.svc.NextSession(r.Context(), identity.UserID, asMentor)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.Data(w, http.StatusOK, sess)
}

func (h *SessionsHandler) handlePreviousWeek(w http.ResponseWriter, r *http.Request) {
	h.previousWeek(w, r, true)
}

func (h *SessionsHandler) handleClientPreviousWeek(w http.ResponseWriter, r *http.Request) {
	h.previousWeek(w, r, false)
}

func (h *SessionsHandler) previousWeek(w http.ResponseWriter, r *http.Request, asMentor bool) {
	identity, _ := middleware.IdentityFrom(r.Context())
	sessions, from, to, err := h.svc.PreviousWeek(r.Context(), identity.UserID, asMentor)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.Data(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"from":     from,
		"to":       to,
	})
}

func (h *SessionsHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respond.Data(w, http.StatusOK, stats)
}
