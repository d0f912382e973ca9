package api

import (
	"net/http"

	"github.com/xraph/pandda/app"
	"github.com/xraph/pandda/id"
	"github.com/xraph/pandda/plan"
	"github.com/xraph/pandda/server"
)

func (h *Handler) listServers(w http.ResponseWriter, r *http.Request) {
	servers, err := h.engine.ListServers(r.Context(), server.ListOpts{})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, servers)
}

func (h *Handler) createServer(w http.ResponseWriter, r *http.Request) {
	var s server.Server
	if err := decode(r, &s); err != nil {
		h.writeError(w, r, err)
		return
	}
	actor, _ := ActorFrom(r.Context())
	if err := h.engine.CreateServer(r.Context(), actor, &s); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, &s)
}

func (h *Handler) updateServer(w http.ResponseWriter, r *http.Request) {
	serverID, err := pathID(r, id.ParseServerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var s server.Server
	if err := decode(r, &s); err != nil {
		h.writeError(w, r, err)
		return
	}
	s.ID = serverID
	actor, _ := ActorFrom(r.Context())
	if err := h.engine.UpdateServer(r.Context(), actor, &s); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &s)
}

func (h *Handler) deleteServer(w http.ResponseWriter, r *http.Request) {
	serverID, err := pathID(r, id.ParseServerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	actor, _ := ActorFrom(r.Context())
	if err := h.engine.DeleteServer(r.Context(), actor, serverID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listApps(w http.ResponseWriter, r *http.Request) {
	var opts app.ListOpts
	if s := r.URL.Query().Get("server_id"); s != "" {
		serverID, err := id.ParseServerID(s)
		if err != nil {
			h.writeError(w, r, badRequest(err))
			return
		}
		opts.ServerID = serverID
	}
	apps, err := h.engine.ListApps(r.Context(), opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func (h *Handler) createApp(w http.ResponseWriter, r *http.Request) {
	var a app.App
	if err := decode(r, &a); err != nil {
		h.writeError(w, r, err)
		return
	}
	actor, _ := ActorFrom(r.Context())
	if err := h.engine.CreateApp(r.Context(), actor, &a); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, &a)
}

// updateApp replaces an app's editable fields; the id comes from the path.
func (h *Handler) updateApp(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, id.ParseAppID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var a app.App
	if err := decode(r, &a); err != nil {
		h.writeError(w, r, err)
		return
	}
	a.ID = appID
	actor, _ := ActorFrom(r.Context())
	if err := h.engine.UpdateApp(r.Context(), actor, &a); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &a)
}

func (h *Handler) deleteApp(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, id.ParseAppID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	actor, _ := ActorFrom(r.Context())
	if err := h.engine.DeleteApp(r.Context(), actor, appID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// duplicateCredentials lists usernames held more than once on an app.
func (h *Handler) duplicateCredentials(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, id.ParseAppID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	usernames, err := h.engine.DuplicateCredentials(r.Context(), appID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if usernames == nil {
		usernames = []string{}
	}
	writeJSON(w, http.StatusOK, usernames)
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.engine.ListPlans(r.Context(), plan.ListOpts{})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *Handler) createPlan(w http.ResponseWriter, r *http.Request) {
	var p plan.Plan
	if err := decode(r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}
	actor, _ := ActorFrom(r.Context())
	if err := h.engine.CreatePlan(r.Context(), actor, &p); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, &p)
}

func (h *Handler) updatePlan(w http.ResponseWriter, r *http.Request) {
	planID, err := pathID(r, id.ParsePlanID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var p plan.Plan
	if err := decode(r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}
	p.ID = planID
	actor, _ := ActorFrom(r.Context())
	if err := h.engine.UpdatePlan(r.Context(), actor, &p); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &p)
}

func (h *Handler) deletePlan(w http.ResponseWriter, r *http.Request) {
	planID, err := pathID(r, id.ParsePlanID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	actor, _ := ActorFrom(r.Context())
	if err := h.engine.DeletePlan(r.Context(), actor, planID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
