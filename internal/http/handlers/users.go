package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mentorway/mentorway-be/internal/http/respond"
	"github.com/mentorway/mentorway-be/internal/middleware"
	"github.com/mentorway/mentorway-be/internal/models"
	"github.com/mentorway/mentorway-be/internal/models/dto"
	"github.com/mentorway/mentorway-be/internal/storage"
)

// UsersHandler owns profile, availability, rating, and wallet endpoints.
type UsersHandler struct {
	store storage.UserStore
	now   func() time.Time
}

// NewUsersHandler constructs the handler.
func NewUsersHandler(store storage.UserStore) *UsersHandler {
	return &UsersHandler{store: store, now: time.Now}
}

// Register attaches user routes to the mux. All routes assume the auth
// middleware already ran.
func (h *UsersHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/user/me", h.handleMe)
	mux.HandleFunc("PATCH /api/user/profile", h.handleUpdateProfile)
	mux.HandleFunc("GET /api/user/mentors", h.handleListMentors)
	mux.HandleFunc("GET /api/user/mentors/{id}", h.handleGetMentor)
	mux.HandleFunc("POST /api/user/availability", h.handleSetAvailability)
	mux.HandleFunc("GET /api/user/availability", h.handleOwnAvailability)
	mux.HandleFunc("GET /api/user/availability/{mentorId}", h.handleMentorAvailability)
	mux.HandleFunc("DELETE /api/user/availability/{id}", h.handleDeleteWindow)
	mux.HandleFunc("POST /api/user/rate/{mentorId}", h.handleRateMentor)
	mux.HandleFunc("POST /api/user/topup", h.handleTopUp)
}

func (h *UsersHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	user, err := h.store.GetUser(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.Data(w, http.StatusOK, user)
}

func (h *UsersHandler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	var req dto.ProfileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	user, err := h.store.GetUser(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Expertise != nil {
		user.Expertise = req.Expertise
	}
	if req.Rate != nil {
		if *req.Rate <= 0 {
			respond.Error(w, http.StatusBadRequest, "rate must be positive")
			return
		}
		user.Rate = *req.Rate
	}

	updated, err := h.store.UpdateProfile(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "profile updated", updated)
}

func (h *UsersHandler) handleListMentors(w http.ResponseWriter, r *http.Request) {
	mentors, err := h.store.ListMentors(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respond.Data(w, http.StatusOK, mentors)
}

type mentorProfile struct {
	models.User
	Ratings       []models.Rating `json:"ratings"`
	AverageRating float64         `json:"averageRating"`
}

func (h *UsersHandler) handleGetMentor(w http.ResponseWriter, r *http.Request) {
	mentorID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid mentor id")
		return
	}
	mentor, err := h.store.GetUser(r.Context(), mentorID)
	if err != nil {
		writeError(w, err)
		return
	}
	if mentor.Role != models.RoleMentor {
		respond.Error(w, http.StatusNotFound, "mentor not found")
		return
	}
	ratings, err := h.store.RatingsFor(r.Context(), mentorID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.Data(w, http.StatusOK, mentorProfile{
		User:          mentor,
		Ratings:       ratings,
		AverageRating: averageRating(ratings),
	})
}

func (h *UsersHandler) handleSetAvailability(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	if !identity.Role.CanManageSessions() {
		respond.Error(w, http.StatusForbidden, "only mentors can set availability")
		return
	}
	var req dto.AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if len(req.Times) == 0 {
		respond.Error(w, http.StatusBadRequest, "at least one time window is required")
		return
	}

	windows, err := parseWindows(identity.UserID, req.Times)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	existing, err := h.store.WindowsFor(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, next := range windows {
		for _, have := range existing {
			if next.Overlaps(have) {
				respond.Error(w, http.StatusConflict, "window overlaps an existing one")
				return
			}
		}
	}

	created, err := h.store.AddWindows(r.Context(), identity.UserID, windows)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "availability saved", created)
}

func (h *UsersHandler) handleOwnAvailability(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	windows, err := h.store.WindowsFor(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.Data(w, http.StatusOK, windows)
}

// handleMentorAvailability returns only windows that have not yet started.
func (h *UsersHandler) handleMentorAvailability(w http.ResponseWriter, r *http.Request) {
	mentorID, err := pathID(r, "mentorId")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid mentor id")
		return
	}
	windows, err := h.store.WindowsFor(r.Context(), mentorID)
	if err != nil {
		writeError(w, err)
		return
	}
	now := h.now().UTC()
	future := make([]models.AvailabilityWindow, 0, len(windows))
	for _, win := range windows {
		if win.Start.After(now) {
			future = append(future, win)
		}
	}
	respond.Data(w, http.StatusOK, future)
}

func (h *UsersHandler) handleDeleteWindow(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	windowID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid window id")
		return
	}
	if err := h.store.DeleteWindow(r.Context(), identity.UserID, windowID); err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "window deleted", nil)
}

func (h *UsersHandler) handleRateMentor(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	if !identity.Role.CanBook() {
		respond.Error(w, http.StatusForbidden, "only clients can rate mentors")
		return
	}
	mentorID, err := pathID(r, "mentorId")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid mentor id")
		return
	}
	var req dto.RateMentorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		respond.Error(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}
	mentor, err := h.store.GetUser(r.Context(), mentorID)
	if err != nil {
		writeError(w, err)
		return
	}
	if mentor.Role != models.RoleMentor {
		respond.Error(w, http.StatusNotFound, "mentor not found")
		return
	}

	rating, err := h.store.AddRating(r.Context(), models.Rating{
		MentorID: mentorID,
		RatedBy:  identity.UserID,
		Rating:   req.Rating,
		Review:   req.Review,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "rating saved", rating)
}

func (h *UsersHandler) handleTopUp(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	var req dto.TopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.Amount <= 0 {
		respond.Error(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	user, err := h.store.AdjustBalance(r.Context(), identity.UserID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "wallet topped up", user)
}

func parseWindows(mentorID int64, times []dto.TimeWindow) ([]models.AvailabilityWindow, error) {
	windows := make([]models.AvailabilityWindow, 0, len(times))
	for _, t := range times {
		start, err := time.Parse(time.RFC3339, t.Start)
		if err != nil {
			return nil, errors.New("start must be an RFC3339 timestamp")
		}
		end, err := time.Parse(time.RFC3339, t.End)
		if err != nil {
			return nil, errors.New("end must be an RFC3339 timestamp")
		}
		if !start.Before(end) {
			return nil, errors.New("start must be before end")
		}
		windows = append(windows, models.AvailabilityWindow{
			MentorID: mentorID,
			Start:    start.UTC(),
			End:      end.UTC(),
		})
	}
	for i := range windows {
		for j := i + 1; j < len(windows); j++ {
			if windows[i].Overlaps(windows[j]) {
				return nil, errors.New("submitted windows overlap each other")
			}
		}
	}
	return windows, nil
}

func averageRating(ratings []models.Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	var sum int
	for _, r := range ratings {
		sum += r.Rating
	}
	return float64(sum) / float64(len(ratings))
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}
