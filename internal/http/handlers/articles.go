package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/mentorway/mentorway-be/internal/http/respond"
	"github.com/mentorway/mentorway-be/internal/middleware"
	"github.com/mentorway/mentorway-be/internal/models"
	"github.com/mentorway/mentorway-be/internal/storage"
	"github.com/mentorway/mentorway-be/internal/uploads"
)

const maxBannerBytes = 10 << 20

// ArticlesHandler owns the published-article CRUD. Writes are Admin-only;
// reads are open to any authenticated user. Banner images arrive as
// multipart uploads and are stored through the upload collaborator, which
// yields the URL persisted on the article.
type ArticlesHandler struct {
	store   storage.ArticleStore
	uploads uploads.Store
}

// NewArticlesHandler constructs the handler.
func NewArticlesHandler(store storage.ArticleStore, up uploads.Store) *ArticlesHandler {
	return &ArticlesHandler{store: store, uploads: up}
}

// Register attaches article routes to the mux. All routes assume the auth
// middleware already ran.
func (h *ArticlesHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/article", h.handleCreate)
	mux.HandleFunc("GET /api/article", h.handleList)
	mux.HandleFunc("PATCH /api/article/{id}", h.handleUpdate)
	mux.HandleFunc("DELETE /api/article/{id}", h.handleDelete)
}

func (h *ArticlesHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	if !identity.Role.CanPublish() {
		respond.Error(w, http.StatusForbidden, "only admins can publish articles")
		return
	}
	if err := r.ParseMultipartForm(maxBannerBytes); err != nil {
		respond.Error(w, http.StatusBadRequest, "expected multipart form")
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" || description == "" {
		respond.Error(w, http.StatusBadRequest, "title and description are required")
		return
	}

	bannerURL, err := h.saveBanner(r)
	if err != nil {
		log.Printf("banner upload failed: %v", err)
		respond.Error(w, http.StatusInternalServerError, "failed to store banner")
		return
	}

	created, err := h.store.CreateArticle(r.Context(), models.Article{
		Title:       title,
		Description: description,
		BannerURL:   bannerURL,
		Author:      identity.Name,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "article published", created)
}

func (h *ArticlesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	articles, err := h.store.ListArticles(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respond.Data(w, http.StatusOK, articles)
}

func (h *ArticlesHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	if !identity.Role.CanPublish() {
		respond.Error(w, http.StatusForbidden, "only admins can edit articles")
		return
	}
	articleID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid article id")
		return
	}
	if err := r.ParseMultipartForm(maxBannerBytes); err != nil {
		respond.Error(w, http.StatusBadRequest, "expected multipart form")
		return
	}

	existing, err := h.store.GetArticle(r.Context(), articleID)
	if err != nil {
		writeError(w, err)
		return
	}
	if title := strings.TrimSpace(r.FormValue("title")); title != "" {
		existing.Title = title
	}
	if description := strings.TrimSpace(r.FormValue("description")); description != "" {
		existing.Description = description
	}

	bannerURL, err := h.saveBanner(r)
	if err != nil {
		log.Printf("banner upload failed: %v", err)
		respond.Error(w, http.StatusInternalServerError, "failed to store banner")
		return
	}
	existing.BannerURL = bannerURL

	updated, err := h.store.UpdateArticle(r.Context(), existing)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "article updated", updated)
}

func (h *ArticlesHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	if !identity.Role.CanPublish() {
		respond.Error(w, http.StatusForbidden, "only admins can delete articles")
		return
	}
	articleID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid article id")
		return
	}
	if err := h.store.DeleteArticle(r.Context(), articleID); err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "article deleted", nil)
}

// saveBanner stores the optional "banner" file part and returns its URL, or
// an empty string when no file was sent.
func (h *ArticlesHandler) saveBanner(r *http.Request) (string, error) {
	file, header, err := r.FormFile("banner")
	if err == http.ErrMissingFile {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer file.Close()
	return h.uploads.Save(header.Filename, file)
}
