// ABOUTME: JSON-over-HTTP admin control surface for starting/stopping
// ABOUTME: accounts and inspecting running sessions, authenticated with a
// ABOUTME: bearer JWT. Stdlib net/http.ServeMux, no framework, mirroring the
// ABOUTME: teacher's webadmin handler style without its session/cookie/UI layers.

package adminapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/csgw/gateway/internal/auth"
	"github.com/csgw/gateway/internal/model"
	"github.com/csgw/gateway/internal/store"
)

// AccountSupervisor is the narrow collaborator adminapi needs from
// *supervisor.Supervisor.
type AccountSupervisor interface {
	Start(ctx context.Context, acct *model.Account) error
	Stop(acct *model.Account) error
	StartAllEligible(ctx context.Context, channel string) error
	StopAll()
	ListRunning() []string
}

// PresenceSetter is the narrow collaborator adminapi needs from
// *presence.Controller.
type PresenceSetter interface {
	SetPresence(ctx context.Context, acct *model.Account, presence model.Presence) error
}

// Server exposes the admin control surface over HTTP.
type Server struct {
	mux        *http.ServeMux
	verifier   *auth.JWTVerifier
	supervisor AccountSupervisor
	presence   PresenceSetter
	store      store.Store
	logger     *slog.Logger
}

// New constructs a Server and registers its routes.
func New(verifier *auth.JWTVerifier, supervisor AccountSupervisor, presenceCtl PresenceSetter, st store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mux:        http.NewServeMux(),
		verifier:   verifier,
		supervisor: supervisor,
		presence:   presenceCtl,
		store:      st,
		logger:     logger.With("component", "adminapi"),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /accounts/start", s.authenticated(s.handleStartAccount))
	s.mux.HandleFunc("POST /accounts/stop", s.authenticated(s.handleStopAccount))
	s.mux.HandleFunc("POST /accounts/start-all-eligible", s.authenticated(s.handleStartAllEligible))
	s.mux.HandleFunc("POST /accounts/stop-all", s.authenticated(s.handleStopAll))
	s.mux.HandleFunc("POST /accounts/set-presence", s.authenticated(s.handleSetPresence))
	s.mux.HandleFunc("GET /sessions", s.authenticated(s.handleListSessions))
}

func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if _, err := s.verifier.Verify(token); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}

type accountRef struct {
	Channel       string `json:"channel"`
	ShopID        string `json:"shop_id"`
	AccountUserID string `json:"account_user_id"`
}

func (s *Server) lookupAccount(ctx context.Context, ref accountRef) (*model.Account, error) {
	return s.store.GetAccount(ctx, ref.Channel, ref.ShopID, ref.AccountUserID)
}

func (s *Server) handleStartAccount(w http.ResponseWriter, r *http.Request) {
	var ref accountRef
	if !decodeJSON(w, r, &ref) {
		return
	}
	acct, err := s.lookupAccount(r.Context(), ref)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := s.supervisor.Start(r.Context(), acct); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) handleStopAccount(w http.ResponseWriter, r *http.Request) {
	var ref accountRef
	if !decodeJSON(w, r, &ref) {
		return
	}
	acct, err := s.lookupAccount(r.Context(), ref)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := s.supervisor.Stop(acct); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleStartAllEligible(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Channel string `json:"channel"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.supervisor.StartAllEligible(r.Context(), body.Channel); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) handleStopAll(w http.ResponseWriter, r *http.Request) {
	s.supervisor.StopAll()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleSetPresence(w http.ResponseWriter, r *http.Request) {
	var body struct {
		accountRef
		Presence string `json:"presence"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	acct, err := s.lookupAccount(r.Context(), body.accountRef)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	presence, err := model.ParsePresence(body.Presence)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.presence.SetPresence(r.Context(), acct, presence); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"running": s.supervisor.ListRunning()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
