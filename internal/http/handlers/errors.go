package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/mentorway/mentorway-be/internal/app"
	"github.com/mentorway/mentorway-be/internal/http/respond"
	"github.com/mentorway/mentorway-be/internal/storage"
)

// writeError maps the service error taxonomy onto HTTP statuses. Internal
// causes are logged, never leaked.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrValidation):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrPermission):
		respond.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrConflict), errors.Is(err, storage.ErrAlreadyExists):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrInsufficientFunds):
		respond.Error(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("internal error: %v", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}
