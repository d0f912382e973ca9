package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/xraph/pandda/admin"
	"github.com/xraph/pandda/audit"
	"github.com/xraph/pandda/id"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries a bearer token for the authenticated admin.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Admin     *admin.Admin `json:"admin"`
}

// CreateAdminRequest is the body of POST /admins.
type CreateAdminRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Master   bool   `json:"master"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.engine.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	token, expires, err := h.tokens.Issue(a)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expires, Admin: a})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	a, err := h.engine.GetAdmin(r.Context(), actor.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) listAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.engine.ListAdmins(r.Context(), admin.ListOpts{})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, admins)
}

func (h *Handler) createAdmin(w http.ResponseWriter, r *http.Request) {
	var req CreateAdminRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	actor, _ := ActorFrom(r.Context())
	a, err := h.engine.CreateAdmin(r.Context(), actor, req.Email, req.Password, req.Master)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) deleteAdmin(w http.ResponseWriter, r *http.Request) {
	adminID, err := pathID(r, id.ParseAdminID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	actor, _ := ActorFrom(r.Context())
	if err := h.engine.DeleteAdmin(r.Context(), actor, adminID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setAdminMaster(w http.ResponseWriter, r *http.Request) {
	adminID, err := pathID(r, id.ParseAdminID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		Master bool `json:"master"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	actor, _ := ActorFrom(r.Context())
	a, err := h.engine.SetAdminMaster(r.Context(), actor, adminID, req.Master)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) changeAdminPassword(w http.ResponseWriter, r *http.Request) {
	adminID, err := pathID(r, id.ParseAdminID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	actor, _ := ActorFrom(r.Context())
	if err := h.engine.ChangeAdminPassword(r.Context(), actor, adminID, req.Password); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listActivities serves the audit log, newest first. Query parameters:
// actor_id, action, target, since (RFC 3339), limit and offset.
func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := audit.ListOpts{Action: q.Get("action"), Target: q.Get("target")}

	var err error
	if s := q.Get("actor_id"); s != "" {
		if opts.ActorID, err = id.ParseAdminID(s); err != nil {
			h.writeError(w, r, badRequest(err))
			return
		}
	}
	if s := q.Get("since"); s != "" {
		if opts.Since, err = time.Parse(time.RFC3339, s); err != nil {
			h.writeError(w, r, badRequest(err))
			return
		}
	}
	if opts.Limit, err = intParam(q.Get("limit")); err != nil {
		h.writeError(w, r, err)
		return
	}
	if opts.Offset, err = intParam(q.Get("offset")); err != nil {
		h.writeError(w, r, err)
		return
	}

	activities, err := h.engine.Activities(r.Context(), opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, badRequest(strconv.ErrSyntax)
	}
	return n, nil
}
