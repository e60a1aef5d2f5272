package server

import (
	"backend-spotfinder/internal/audit"
	"backend-spotfinder/internal/auth"
	"backend-spotfinder/internal/backfill"
	"backend-spotfinder/internal/cache"
	"backend-spotfinder/internal/config"
	"backend-spotfinder/internal/report"
	"backend-spotfinder/internal/spot"
	"backend-spotfinder/internal/stream"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	moderatorMiddleware := auth.RequireRole(auth.RoleModerator)

	auditSvc := audit.NewService(s.DB)
	spotSvc := spot.NewService(s.DB, auditSvc, cache.New(s.Redis), s.Stream)
	reportSvc := report.NewService(s.DB, auditSvc)
	runner := backfill.NewRunner(s.DB, s.Cfg.BackfillPageSize, s.Cfg.BackfillBatchSize)

	spot.RegisterRoutes(s.App.Group("/spots"), spotSvc, auditSvc, jwtMiddleware, moderatorMiddleware)
	report.RegisterRoutes(s.App.Group("/reports"), reportSvc, jwtMiddleware, moderatorMiddleware)
	backfill.RegisterRoutes(s.App.Group("/admin/backfill"), runner, s.Cfg.RecomputeTimeout, jwtMiddleware, moderatorMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
