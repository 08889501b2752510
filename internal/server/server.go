package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/scythe504/race24-backend/internal/game"
	"github.com/scythe504/race24-backend/internal/websockets"
)

type Server struct {
	port int

	game *game.Game
	hub  *websockets.Hub
}

func NewServer(port int, g *game.Game, hub *websockets.Hub) *http.Server {
	s := &Server{
		port: port,
		game: g,
		hub:  hub,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
