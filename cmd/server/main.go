package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edulearn/internal/cache"
	"edulearn/internal/config"
	"edulearn/internal/repository"
	"edulearn/internal/service"
	"edulearn/internal/transport/rest"
	"edulearn/internal/transport/ws"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// @title EduLearn Live Session API
// @version 1.0
// @description Live classroom session layer: presence, content pushes, response analytics
// @BasePath /v1
func main() {
	ctx := context.Background()
	cfg := config.Load()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDB)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	// WebSocket hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// Repositories
	rosterRepo := repository.NewRosterRepo(db)
	attendanceRepo := repository.NewAttendanceRepo(db)
	sessionRepo := repository.NewSessionRepo(db)

	// Caches
	rosterCache := cache.NewRosterCache(rdb)

	// Services
	authSvc := service.NewAuthService(cfg.JWTSecret)
	rosterSvc := service.NewRosterService(rosterCache, rosterRepo)
	sessionSvc := service.NewSessionService(rosterSvc, attendanceRepo, sessionRepo, cfg.GraceWindow, cfg.Retention)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	sessionSvc.SetBroadcaster(wsHub)

	container := &rest.Container{
		AuthService:    authSvc,
		SessionService: sessionSvc,
		WSHub:          wsHub,
	}

	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		log.Println("Endpoints:")
		log.Println("  POST /v1/sessions")
		log.Println("  POST /v1/sessions/{id}/end")
		log.Println("  POST /v1/sessions/{id}/content")
		log.Println("  GET  /v1/sessions/{id}/roster")
		log.Println("  GET  /v1/sessions/{id}/analytics")
		log.Println("  GET  /v1/sessions/code/{code}")
		log.Println("  WS   /v1/ws/sessions/{id}")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
