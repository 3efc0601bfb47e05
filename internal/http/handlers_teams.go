package httpx

import (
	"net/http"

	"github.com/splax/cornerstone/internal/domain"
)

func (r *Router) handleTeams(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	switch req.Method {
	case http.MethodGet:
		teams, err := r.svc.Team.Teams(req.Context(), info.UserID)
		if err != nil {
			r.writeServiceError(w, err)
			return
		}
		if teams == nil {
			teams = []domain.Team{}
		}
		writeJSON(w, http.StatusOK, teams)
	case http.MethodPost:
		var payload struct {
			Name string `json:"name"`
		}
		if !decodeJSON(w, req, &payload) {
			return
		}
		team, err := r.svc.Team.Create(req.Context(), info.UserID, payload.Name)
		if err != nil {
			r.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, team)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleTeamSubroutes(w http.ResponseWriter, req *http.Request) {
	id, rest := pathID(req.URL.Path, "/teams/")
	switch {
	case id == "current" && len(rest) == 0:
		r.handleCurrentTeam(w, req)
	case id != "" && len(rest) == 1 && rest[0] == "members":
		r.handleTeamMembers(w, req, id)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleCurrentTeam(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, _ := authInfoFromContext(req.Context())
	team, err := r.svc.Team.Current(req.Context(), info.UserID, requestedTeam(req, info))
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (r *Router) handleTeamMembers(w http.ResponseWriter, req *http.Request, teamID string) {
	info, _ := authInfoFromContext(req.Context())
	switch req.Method {
	case http.MethodGet:
		members, err := r.svc.Team.Members(req.Context(), info.UserID, teamID)
		if err != nil {
			r.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, members)
	case http.MethodPost:
		var payload struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		}
		if !decodeJSON(w, req, &payload) {
			return
		}
		member, err := r.svc.Team.AddMember(req.Context(), info.UserID, teamID, payload.Email, payload.Role)
		if err != nil {
			r.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, member)
	default:
		r.methodNotAllowed(w)
	}
}
