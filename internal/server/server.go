package server

import (
	"github.com/ninouGx/run-sous-bpm/internal/activity"
	"github.com/ninouGx/run-sous-bpm/internal/auth"
	"github.com/ninouGx/run-sous-bpm/internal/config"
	"github.com/ninouGx/run-sous-bpm/internal/lastfm"
	"github.com/ninouGx/run-sous-bpm/internal/music"
	"github.com/ninouGx/run-sous-bpm/internal/strava"
	"github.com/ninouGx/run-sous-bpm/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	stravaClient := strava.NewClient(s.Cfg.StravaAPIURL)
	lastfmClient := lastfm.NewClient(s.Cfg.LastfmAPIKey, s.Cfg.LastfmAPIURL)

	activitySvc := activity.NewService(s.DB, stravaClient, s.Stream)
	musicSvc := music.NewService(s.DB, activitySvc, lastfmClient)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB), jwtMiddleware)

	activities := s.App.Group("/activities")
	activity.RegisterRoutes(activities, activitySvc, jwtMiddleware)
	music.RegisterActivityRoutes(activities, musicSvc, jwtMiddleware)

	music.RegisterRoutes(s.App.Group("/music"), musicSvc, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
