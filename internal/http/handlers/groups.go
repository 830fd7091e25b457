package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mentorway/mentorway-be/internal/http/respond"
	"github.com/mentorway/mentorway-be/internal/middleware"
	"github.com/mentorway/mentorway-be/internal/models"
	"github.com/mentorway/mentorway-be/internal/storage"
)

// GroupsHandler owns chat-room roster management. The creator is always a
// member of the room they create.
type GroupsHandler struct {
	store storage.GroupStore
}

// NewGroupsHandler constructs the handler.
func NewGroupsHandler(store storage.GroupStore) *GroupsHandler {
	return &GroupsHandler{store: store}
}

// Register attaches group routes to the mux. All routes assume the auth
// middleware already ran.
func (h *GroupsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/group", h.handleCreate)
	mux.HandleFunc("GET /api/group/{id}", h.handleGet)
	mux.HandleFunc("POST /api/group/{id}/members", h.handleAddMember)
}

type createGroupRequest struct {
	Name    string  `json:"name"`
	Members []int64 `json:"members"`
}

type addMemberRequest struct {
	UserID int64 `json:"userId"`
}

func (h *GroupsHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respond.Error(w, http.StatusBadRequest, "group name is required")
		return
	}

	members := req.Members
	found := false
	for _, m := range members {
		if m == identity.UserID {
			found = true
			break
		}
	}
	if !found {
		members = append(members, identity.UserID)
	}

	created, err := h.store.CreateGroup(r.Context(), models.Group{
		Name:    strings.TrimSpace(req.Name),
		Members: members,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "group created", created)
}

func (h *GroupsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid group id")
		return
	}
	group, err := h.store.GetGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.Data(w, http.StatusOK, group)
}

func (h *GroupsHandler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	groupID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid group id")
		return
	}
	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	group, err := h.store.GetGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !group.HasMember(identity.UserID) {
		respond.Error(w, http.StatusForbidden, "only members can invite to a group")
		return
	}
	if err := h.store.AddMember(r.Context(), groupID, req.UserID); err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "member added", nil)
}
