package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/splax/cornerstone/internal/domain"
	jwtpkg "github.com/splax/cornerstone/pkg/jwt"
)

type authContextKey string

const (
	contextKeyAuth  authContextKey = "cornerstone-auth-info"
	teamHeader                     = "X-Team-ID"
	tokenQueryParam                = "access_token"
)

var (
	errNoCredentials = errors.New("missing authorization header")
	errBadScheme     = errors.New("authorization header is not a bearer token")
)

// authInfo is what the router knows about the caller once the token checks out.
// TeamID starts as the token's claim and is replaced by requireTeam.
type authInfo struct {
	UserID    string
	TeamID    string
	SessionID string
	Claims    *jwtpkg.Claims
}

func (a authInfo) Actor() domain.Actor {
	return domain.Actor{UserID: a.UserID, TeamID: a.TeamID}
}

// contextSetter lets the audit recorder see the enriched context for its log line.
type contextSetter interface {
	SetContext(context.Context)
}

func withAuthInfo(w http.ResponseWriter, req *http.Request, info authInfo) *http.Request {
	ctx := context.WithValue(req.Context(), contextKeyAuth, info)
	if setter, ok := w.(contextSetter); ok {
		setter.SetContext(ctx)
	}
	return req.WithContext(ctx)
}

func authInfoFromContext(ctx context.Context) (authInfo, bool) {
	info, ok := ctx.Value(contextKeyAuth).(authInfo)
	return info, ok
}

func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		info, ok := r.authenticate(w, req, false)
		if !ok {
			return
		}
		next(w, withAuthInfo(w, req, info))
	}
}

// requireTeam pins the request to one team the caller belongs to. It reads
// the X-Team-ID header and falls back to the team in the token.
func (r *Router) requireTeam(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		info, ok := authInfoFromContext(req.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		team, err := r.svc.Team.Current(req.Context(), info.UserID, requestedTeam(req, info))
		if err != nil {
			r.writeServiceError(w, err)
			return
		}
		info.TeamID = team.ID
		next(w, withAuthInfo(w, req, info))
	}
}

func requestedTeam(req *http.Request, info authInfo) string {
	if id := strings.TrimSpace(req.Header.Get(teamHeader)); id != "" {
		return id
	}
	return info.TeamID
}

// authenticate validates the caller's token and the session behind it. Stream
// endpoints pass allowQuery because websocket and EventSource clients cannot
// always set headers.
func (r *Router) authenticate(w http.ResponseWriter, req *http.Request, allowQuery bool) (authInfo, bool) {
	token, err := bearerToken(req.Header.Get("Authorization"))
	if err != nil && allowQuery {
		if q := strings.TrimSpace(req.URL.Query().Get(tokenQueryParam)); q != "" {
			token, err = q, nil
		}
	}
	if err != nil {
		r.logger.Warn("request without usable credentials", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "authentication required")
		return authInfo{}, false
	}

	user, claims, err := r.svc.Auth.Authorize(req.Context(), token)
	if err != nil {
		r.logger.Warn("token rejected", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return authInfo{}, false
	}
	return authInfo{UserID: user.ID, TeamID: claims.TeamID, SessionID: claims.SessionID, Claims: claims}, true
}

func bearerToken(header string) (string, error) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	switch {
	case scheme == "":
		return "", errNoCredentials
	case !found || !strings.EqualFold(scheme, "Bearer"):
		return "", errBadScheme
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", errBadScheme
	}
	return token, nil
}
