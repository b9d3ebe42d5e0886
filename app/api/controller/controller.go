package controller

import (
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"

	"github.com/ed-andre/nowrepsync/app/api/types"
	"github.com/ed-andre/nowrepsync/pkg/utils"
)

type Controller struct {
	App       *types.App
	APIToken  string
	AuthUser  string
	Users     map[string]types.User
	AuthHash  []byte
	JWTSecret []byte
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	apiToken := utils.Env("SYNC_API_TOKEN", "devtoken")
	authUser := utils.Env("SYNC_USER", "admin")
	authUsersJSON := utils.Env("SYNC_USERS", "")
	authPass := utils.Env("SYNC_PASSWORD", "admin")
	jwtSecret := []byte(utils.Env("SESSION_SECRET", "change-me-please"))

	phash, _ := utils.HashOrRead(authPass)
	users := map[string]types.User{}
	users[authUser] = types.User{Username: authUser, Hash: phash, Role: "admin"}
	if authUsersJSON != "" {
		_ = json.Unmarshal([]byte(authUsersJSON), &users)
	}

	return &Controller{
		App:       app,
		APIToken:  apiToken,
		AuthUser:  authUser,
		Users:     users,
		AuthHash:  phash,
		JWTSecret: jwtSecret,
	}
}

// WithCORS is a middleware that adds CORS headers to the response.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodPost+", "+http.MethodOptions)

		// Fast-path the preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()

	// basically it's ok, could even be a public endpoint
	r.Handle("/api/health", http.HandlerFunc(c.HandleHealth)).Methods(http.MethodGet)

	// Login/Logout
	r.HandleFunc("/api/auth/login", c.HandleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/logout", c.HandleLogout).Methods(http.MethodPost)

	// Pipeline operations
	r.Handle("/api/sync/run", c.RequireAuth(http.HandlerFunc(c.HandleSyncRun))).Methods(http.MethodPost)
	r.Handle("/api/sync/snapshot", c.RequireAuth(http.HandlerFunc(c.HandleSnapshot))).Methods(http.MethodPost)
	r.Handle("/api/sync/transform/{entity}", c.RequireAuth(http.HandlerFunc(c.HandleTransform))).Methods(http.MethodPost)
	r.Handle("/api/sync/empty", c.RequireAuth(http.HandlerFunc(c.HandleEmpty))).Methods(http.MethodPost)

	// Introspection
	r.Handle("/api/sync/status", c.RequireAuth(http.HandlerFunc(c.HandleSyncStatus))).Methods(http.MethodGet)
	r.Handle("/api/runs", c.RequireAuth(http.HandlerFunc(c.HandleRuns))).Methods(http.MethodGet)

	// WebSocket endpoint for real-time run events
	r.HandleFunc("/api/ws", c.HandleWebSocket).Methods(http.MethodGet)

	return r, nil
}
