package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Server is the HTTP polling variant of the game protocol: the same use case
// as the WebSocket dispatcher, exposed as request/response endpoints.
type Server struct {
	logger *slog.Logger
	uGame  gameUseCase
	stats  statsService
}

func New(logger *slog.Logger, uGame gameUseCase, stats statsService) *Server {
	return &Server{
		logger: logger,
		uGame:  uGame,
		stats:  stats,
	}
}

func (that *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/ping", that.handlePing).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/join", that.handleJoin).Methods(http.MethodGet)
	api.HandleFunc("/poll", that.handlePoll).Methods(http.MethodGet)
	api.HandleFunc("/move", that.handleMove).Methods(http.MethodGet)
	api.HandleFunc("/reset", that.handleReset).Methods(http.MethodGet)
	api.HandleFunc("/queue", that.handleQueue).Methods(http.MethodGet)
	api.HandleFunc("/leave-queue", that.handleLeaveQueue).Methods(http.MethodGet)
	api.HandleFunc("/stats", that.handleStats).Methods(http.MethodGet)

	return router
}

// Start runs the polling API until the context is cancelled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
