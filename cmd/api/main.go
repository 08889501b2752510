package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scythe504/race24-backend/internal/config"
	"github.com/scythe504/race24-backend/internal/game"
	"github.com/scythe504/race24-backend/internal/server"
	"github.com/scythe504/race24-backend/internal/solver"
	"github.com/scythe504/race24-backend/internal/store"
	"github.com/scythe504/race24-backend/internal/websockets"
)

func main() {
	cfg := config.Load()

	var submissionStore game.SubmissionStore
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			log.Fatalf("failed to open submission store: %v", err)
		}
		defer pg.Close()
		submissionStore = pg
		log.Printf("[main] submission archive enabled")
	}

	hub := websockets.NewHub()
	g := game.NewGame(solver.New(), cfg.RoomSettings, hub, submissionStore)
	hub.Bind(g)

	srv := server.NewServer(cfg.Port, g, hub)

	// Reap idle rooms in the background so abandoned games don't pile up.
	reapCtx, stopReaper := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(cfg.ReapInterval)
		defer ticker.Stop()
		for {
			select {
			case <-reapCtx.Done():
				return
			case <-ticker.C:
				g.ReapIdleRooms(cfg.MaxRoomIdle)
			}
		}
	}()

	go func() {
		log.Printf("[main] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("[main] shutting down")

	stopReaper()
	g.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[main] shutdown error: %v", err)
	}
}
