package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AnnkoATAMA/tensai/internal/auth"
	"github.com/AnnkoATAMA/tensai/internal/cache"
	"github.com/AnnkoATAMA/tensai/internal/database"
	"github.com/AnnkoATAMA/tensai/internal/handlers"
	"github.com/AnnkoATAMA/tensai/internal/hub"
	"github.com/AnnkoATAMA/tensai/internal/middleware"
)

func main() {
	logger := logrus.New()
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	}

	if err := auth.Init(); err != nil {
		log.Fatalf("auth init failed: %v", err)
	}
	database.ConnectDB()
	defer database.DB.Close()

	if err := cache.ConnectRedis(); err != nil {
		// The historian queue is optional; play continues without it.
		logger.WithError(err).Warn("redis unavailable, action logging disabled")
	}

	h := hub.New(logger)
	h.RonWindow = time.Duration(cache.GetEnvInt("RON_WINDOW_SEC", 10)) * time.Second
	h.DoubtWindow = time.Duration(cache.GetEnvInt("DOUBT_WINDOW_SEC", 30)) * time.Second
	h.OnGameEnd = func(roomID string, winner uuid.UUID, players []uuid.UUID) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := database.FinalizeGameRatings(ctx, roomID, players, winner); err != nil {
			logger.WithError(err).WithField("room", roomID).Error("failed to finalize ratings")
		}
	}

	mux := http.NewServeMux()

	// user endpoints
	mux.HandleFunc("/user/create", handlers.CreateUserHandler)
	mux.HandleFunc("/user/login", handlers.LoginHandler)
	mux.HandleFunc("/user/me", handlers.MeHandler)

	// room CRUD
	mux.Handle("/room/create", middleware.LogMiddleware(logger)(http.HandlerFunc(handlers.CreateRoomHandler)))
	mux.Handle("/room/list", middleware.LogMiddleware(logger)(http.HandlerFunc(handlers.ListRoomsHandler)))
	mux.Handle("/room/join", middleware.LogMiddleware(logger)(http.HandlerFunc(handlers.JoinRoomHandler)))
	mux.Handle("/room/leave", middleware.LogMiddleware(logger)(http.HandlerFunc(handlers.LeaveRoomHandler)))
	mux.Handle("/room/delete", middleware.LogMiddleware(logger)(http.HandlerFunc(handlers.DeleteRoomHandler)))
	mux.Handle("/room/players", middleware.LogMiddleware(logger)(http.HandlerFunc(handlers.RoomPlayersHandler)))

	// game websocket
	mux.HandleFunc("/room/ws/", handlers.RoomWSHandler(logger, h))

	server := &http.Server{
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}

	port := cache.GetEnv("PORT", "8080")
	l, err := net.Listen("tcp", fmt.Sprintf(":%s", port))
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	logger.Infof("listening on %s", l.Addr())

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(l)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Errorf("failed to serve: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
	}
}
