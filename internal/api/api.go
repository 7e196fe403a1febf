package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/ivanoskov/wallet_sessions/internal/charts"
	"github.com/ivanoskov/wallet_sessions/internal/metrics"
	"github.com/ivanoskov/wallet_sessions/internal/model"
)

// Sessions is the session lifecycle exposed over HTTP.
type Sessions interface {
	CreateSession(ctx context.Context, session model.Session, participants []model.NewParticipant) (*model.Session, error)
	ListSessionsByWallet(ctx context.Context, wallet string) ([]model.SessionSummary, error)
	JoinSession(ctx context.Context, sessionID, wallet string) (*model.Participant, error)
	ActivateSession(ctx context.Context, sessionID, wallet string) (*model.Session, error)
	GetSessionDetails(ctx context.Context, sessionID string) (*model.SessionDetails, error)
}

type API struct {
	router         *mux.Router
	service        Sessions
	charts         *charts.ChartGenerator
	allowedOrigins []string
}

func New(service Sessions, allowedOrigins []string) *API {
	api := &API{
		router:         mux.NewRouter(),
		service:        service,
		charts:         charts.NewChartGenerator(),
		allowedOrigins: allowedOrigins,
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	a.router.Use(a.requestMiddleware)

	a.router.HandleFunc("/healthz", a.handleHealth).Methods("GET")
	a.router.Handle("/metrics", metrics.Handler()).Methods("GET")

	sessions := a.router.PathPrefix("/api").Subrouter()
	sessions.HandleFunc("/sessions", a.handleCreateSession).Methods("POST")
	sessions.HandleFunc("/wallets/{wallet}/sessions", a.handleListSessions).Methods("GET")
	sessions.HandleFunc("/sessions/{session_id}", a.handleSessionDetails).Methods("GET")
	sessions.HandleFunc("/sessions/{session_id}/chart.png", a.handleSessionChart).Methods("GET")
	sessions.HandleFunc("/sessions/{session_id}/join", a.handleJoinSession).Methods("POST")
	sessions.HandleFunc("/sessions/{session_id}/activate", a.handleActivateSession).Methods("POST")
}

// Handler returns the router wrapped with CORS handling.
func (a *API) Handler() http.Handler {
	// Credentials stay off while the wildcard origin is allowed.
	allowCredentials := true
	for _, origin := range a.allowedOrigins {
		if origin == "*" {
			allowCredentials = false
		}
	}

	corsOptions := cors.Options{
		AllowedOrigins:   a.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: allowCredentials,
	}

	return cors.New(corsOptions).Handler(a.router)
}
