package httpx

import (
	"context"
	"net/http"
	"strconv"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
	"github.com/splax/cornerstone/internal/service/calendar"
	"github.com/splax/cornerstone/internal/service/contact"
	"github.com/splax/cornerstone/internal/service/organisation"
	"github.com/splax/cornerstone/internal/service/task"
	"github.com/splax/cornerstone/internal/service/timeline"
)

// resource serves list/create on a collection and get/update/delete on its items
// for one entity type. All calls run in the caller's team.
type resource[T any, In any] struct {
	router *Router
	list   func(context.Context, domain.Actor, repository.Query) ([]T, error)
	get    func(context.Context, domain.Actor, string) (*T, error)
	create func(context.Context, domain.Actor, In) (*T, error)
	update func(context.Context, domain.Actor, string, In) (*T, error)
	remove func(context.Context, domain.Actor, string) error
}

func (res resource[T, In]) serveCollection(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	switch req.Method {
	case http.MethodGet:
		q, err := repository.ParseQuery(req.URL.Query())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		items, err := res.list(req.Context(), info.Actor(), q)
		if err != nil {
			res.router.writeServiceError(w, err)
			return
		}
		if items == nil {
			items = []T{}
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var in In
		if !decodeJSON(w, req, &in) {
			return
		}
		item, err := res.create(req.Context(), info.Actor(), in)
		if err != nil {
			res.router.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	default:
		res.router.methodNotAllowed(w)
	}
}

func (res resource[T, In]) serveItem(w http.ResponseWriter, req *http.Request, id string) {
	info, _ := authInfoFromContext(req.Context())
	switch req.Method {
	case http.MethodGet:
		item, err := res.get(req.Context(), info.Actor(), id)
		if err != nil {
			res.router.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	case http.MethodPut, http.MethodPatch:
		var in In
		if !decodeJSON(w, req, &in) {
			return
		}
		item, err := res.update(req.Context(), info.Actor(), id, in)
		if err != nil {
			res.router.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	case http.MethodDelete:
		if err := res.remove(req.Context(), info.Actor(), id); err != nil {
			res.router.writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		res.router.methodNotAllowed(w)
	}
}

func (r *Router) organisationResource() resource[domain.Organisation, organisation.Input] {
	s := r.svc.Organisations
	return resource[domain.Organisation, organisation.Input]{router: r, list: s.List, get: s.Get, create: s.Create, update: s.Update, remove: s.Delete}
}

func (r *Router) contactResource() resource[domain.Contact, contact.Input] {
	s := r.svc.Contacts
	return resource[domain.Contact, contact.Input]{router: r, list: s.List, get: s.Get, create: s.Create, update: s.Update, remove: s.Delete}
}

func (r *Router) taskResource() resource[domain.Task, task.Input] {
	s := r.svc.Tasks
	return resource[domain.Task, task.Input]{router: r, list: s.List, get: s.Get, create: s.Create, update: s.Update, remove: s.Delete}
}

func (r *Router) eventResource() resource[domain.CalendarEvent, calendar.Input] {
	s := r.svc.Calendar
	return resource[domain.CalendarEvent, calendar.Input]{router: r, list: s.List, get: s.Get, create: s.Create, update: s.Update, remove: s.Delete}
}

func (r *Router) handleOrganisationSubroutes(w http.ResponseWriter, req *http.Request) {
	id, rest := pathID(req.URL.Path, "/organisations/")
	switch {
	case id == "":
		r.notFound(w)
	case len(rest) == 0:
		r.organisationResource().serveItem(w, req, id)
	case len(rest) == 1 && rest[0] == "updates":
		r.serveTimeline(w, req, domain.KindOrganisation, id)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleContactSubroutes(w http.ResponseWriter, req *http.Request) {
	id, rest := pathID(req.URL.Path, "/contacts/")
	switch {
	case id == "":
		r.notFound(w)
	case len(rest) == 0:
		r.contactResource().serveItem(w, req, id)
	case len(rest) == 1 && rest[0] == "updates":
		r.serveTimeline(w, req, domain.KindContact, id)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleEventSubroutes(w http.ResponseWriter, req *http.Request) {
	id, rest := pathID(req.URL.Path, "/events/")
	if id == "" || len(rest) > 0 {
		r.notFound(w)
		return
	}
	r.eventResource().serveItem(w, req, id)
}

func (r *Router) handleTaskSubroutes(w http.ResponseWriter, req *http.Request) {
	id, rest := pathID(req.URL.Path, "/tasks/")
	switch {
	case id == "":
		r.notFound(w)
	case len(rest) == 0:
		r.taskResource().serveItem(w, req, id)
	case len(rest) == 1 && rest[0] == "toggle":
		r.handleTaskToggle(w, req, id)
	case len(rest) == 1 && rest[0] == "links":
		r.handleTaskLinkCreate(w, req, id)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleTaskToggle(w http.ResponseWriter, req *http.Request, id string) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	info, _ := authInfoFromContext(req.Context())
	updated, err := r.svc.Tasks.ToggleStatus(req.Context(), info.Actor(), id)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (r *Router) handleTaskLinkCreate(w http.ResponseWriter, req *http.Request, taskID string) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var in task.LinkInput
	if !decodeJSON(w, req, &in) {
		return
	}
	info, _ := authInfoFromContext(req.Context())
	link, err := r.svc.Tasks.AddLink(req.Context(), info.Actor(), taskID, in)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (r *Router) handleTaskLink(w http.ResponseWriter, req *http.Request) {
	id, rest := pathID(req.URL.Path, "/task-links/")
	if id == "" || len(rest) > 0 {
		r.notFound(w)
		return
	}
	if req.Method != http.MethodDelete {
		r.methodNotAllowed(w)
		return
	}
	info, _ := authInfoFromContext(req.Context())
	if err := r.svc.Tasks.DeleteLink(req.Context(), info.Actor(), id); err != nil {
		r.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) serveTimeline(w http.ResponseWriter, req *http.Request, parent domain.Kind, parentID string) {
	info, _ := authInfoFromContext(req.Context())
	switch req.Method {
	case http.MethodGet:
		updates, err := r.svc.Timeline.List(req.Context(), info.Actor(), parent, parentID)
		if err != nil {
			r.writeServiceError(w, err)
			return
		}
		if updates == nil {
			updates = []domain.Update{}
		}
		writeJSON(w, http.StatusOK, updates)
	case http.MethodPost:
		var in timeline.Input
		if !decodeJSON(w, req, &in) {
			return
		}
		update, err := r.svc.Timeline.Add(req.Context(), info.Actor(), parent, parentID, in)
		if err != nil {
			r.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, update)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleOrganisationUpdate(w http.ResponseWriter, req *http.Request) {
	id, rest := pathID(req.URL.Path, "/organisation-updates/")
	if id == "" || len(rest) > 0 {
		r.notFound(w)
		return
	}
	if req.Method != http.MethodDelete {
		r.methodNotAllowed(w)
		return
	}
	info, _ := authInfoFromContext(req.Context())
	if err := r.svc.Timeline.Delete(req.Context(), info.Actor(), domain.KindOrganisation, id); err != nil {
		r.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleRecentViews(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	switch req.Method {
	case http.MethodGet:
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		views, err := r.svc.Recent.List(req.Context(), info.Actor(), limit)
		if err != nil {
			r.writeServiceError(w, err)
			return
		}
		if views == nil {
			views = []domain.RecentView{}
		}
		writeJSON(w, http.StatusOK, views)
	case http.MethodPost, http.MethodPut:
		var payload struct {
			ItemType domain.Kind `json:"item_type"`
			ItemID   string      `json:"item_id"`
		}
		if !decodeJSON(w, req, &payload) {
			return
		}
		if payload.ItemID == "" {
			writeError(w, http.StatusBadRequest, "item_id is required")
			return
		}
		view, err := r.svc.Recent.Record(req.Context(), info.Actor(), payload.ItemType, payload.ItemID)
		if err != nil {
			r.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	default:
		r.methodNotAllowed(w)
	}
}
