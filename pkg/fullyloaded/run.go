package fullyloaded

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// sessionSweepInterval is how often expired sessions are dropped.
const sessionSweepInterval = 5 * time.Minute

// Handler builds the HTTP router. Routes marked authed require a bearer
// token: either a session token from /api/auth/session or an ID token the
// configured verifier accepts.
func (a *App) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(a.accessLog)

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", a.handleHealth).Methods("GET")
	api.HandleFunc("/version", a.handleVersion).Methods("GET")

	api.HandleFunc("/auth/session", a.handleCreateSession).Methods("POST")
	api.HandleFunc("/auth/signout", a.authed(a.handleSignOut)).Methods("POST")
	api.HandleFunc("/auth/me", a.authed(a.handleGetCurrentUser)).Methods("GET")

	// Share routes come before /lists/{name} so "share" is not taken as
	// a list name.
	api.HandleFunc("/lists/share", a.handleCreateShare).Methods("POST")
	api.HandleFunc("/lists/share", a.handleGetShare).Methods("GET")
	api.HandleFunc("/lists/share/{id}/import", a.authed(a.handleImportShare)).Methods("POST")

	api.HandleFunc("/lists", a.authed(a.handleListLists)).Methods("GET")
	api.HandleFunc("/lists", a.authed(a.handleCreateList)).Methods("POST")
	api.HandleFunc("/lists/{name}", a.authed(a.handleGetList)).Methods("GET")
	api.HandleFunc("/lists/{name}", a.authed(a.handleSaveList)).Methods("PUT")
	api.HandleFunc("/lists/{name}", a.authed(a.handleDeleteList)).Methods("DELETE")
	api.HandleFunc("/lists/{name}/exists", a.authed(a.handleListExists)).Methods("GET")
	api.HandleFunc("/lists/{name}/rename", a.authed(a.handleRenameList)).Methods("POST")

	api.HandleFunc("/migration", a.authed(a.handleMigrationStatus)).Methods("GET")
	api.HandleFunc("/migration", a.authed(a.handleRunMigration)).Methods("POST")

	api.HandleFunc("/profile", a.authed(a.handleGetProfile)).Methods("GET")
	api.HandleFunc("/profile/image", a.authed(a.handleUploadProfileImage)).Methods("PUT")

	api.HandleFunc("/admin/mode", a.admin(a.handleGetMode)).Methods("GET")
	api.HandleFunc("/admin/mode", a.admin(a.handleSetMode)).Methods("POST")
	api.HandleFunc("/admin/read-only", a.admin(a.handleSetReadOnly)).Methods("POST")
	api.HandleFunc("/admin/swap-stores", a.admin(a.handleSwapStores)).Methods("POST")

	router.HandleFunc("/health", a.handleHealth).Methods("GET")

	return router
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context, cmd *RunCommand) error {
	addr := fmt.Sprintf(":%s", a.config.ServerPort)
	a.logger.Info().
		Str("addr", addr).
		Str("backend", a.config.Backend).
		Str("mode", string(a.cqrs.GetMode())).
		Bool("readOnly", a.IsReadOnly()).
		Msg("starting Fully Loaded server")

	server := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go a.sessions.RunSweeper(ctx, sessionSweepInterval)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}
