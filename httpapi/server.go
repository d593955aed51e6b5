package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/etherlabsio/healthcheck/v2"
	"github.com/gorilla/mux"
	logging "github.com/ipfs/go-log/v2"

	"github.com/ipfs-force-community/rebalance-gateway/aiclient"
	"github.com/ipfs-force-community/rebalance-gateway/auth"
	"github.com/ipfs-force-community/rebalance-gateway/userstore"
)

var log = logging.Logger("httpapi")

// Server serves the web API next to the JSON-RPC endpoint.
type Server struct {
	sessions *auth.Service
	local    *auth.LocalToken
	handle   *userstore.Handle
	ai       *aiclient.Client
}

func NewServer(sessions *auth.Service, local *auth.LocalToken, handle *userstore.Handle, ai *aiclient.Client) *Server {
	return &Server{
		sessions: sessions,
		local:    local,
		handle:   handle,
		ai:       ai,
	}
}

// Register mounts the routes on r. Every route sees the caller's session when a token is sent.
func (s *Server) Register(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(func(next http.Handler) http.Handler {
		return &auth.AuthHandler{Local: s.local, Sessions: s.sessions, Optional: true, Next: next}
	})

	api.HandleFunc("/auth/signup", s.signup).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/guest", s.guest).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", s.logout).Methods(http.MethodPost)

	api.HandleFunc("/user/wallet", s.setWallet).Methods(http.MethodPost)
	api.HandleFunc("/user/wallet", s.getWallet).Methods(http.MethodGet)

	api.HandleFunc("/ai-prediction", s.predict).Methods(http.MethodPost)
	api.HandleFunc("/ai-prediction", s.strategies).Methods(http.MethodGet)

	r.Handle("/healthcheck", healthcheck.Handler(
		healthcheck.WithTimeout(5*time.Second),
		healthcheck.WithChecker("database", healthcheck.CheckerFunc(func(ctx context.Context) error {
			store, err := s.handle.Get(ctx)
			if err != nil {
				return err
			}
			return store.Ping(ctx)
		})),
	))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("write response: %v", err)
	}
}

type message struct {
	Message string `json:"message"`
}
