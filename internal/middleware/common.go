package middleware

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// HeaderSeedToken carries the shared secret for catalog seeding.
const HeaderSeedToken = "X-Seed-Token"

// Config customises the middleware registration pipeline.
type Config struct {
	Logger *zerolog.Logger
	// AllowOrigins is a comma separated CORS origin list. Empty means "*".
	AllowOrigins string
	// AccessLogOutput receives the plain access log. Defaults to stdout.
	AccessLogOutput io.Writer
}

// Register attaches the middleware shared by every evaluation route, in order:
// panic recovery, correlation ids, metrics, access log, CORS.
func Register(app *fiber.App, cfg Config) {
	requestLogger := zerolog.New(io.Discard)
	if cfg.Logger != nil {
		requestLogger = *cfg.Logger
	}
	origins := cfg.AllowOrigins
	if origins == "" {
		origins = "*"
	}

	accessLog := logger.Config{
		Format: "${time} ${locals:" + LocalCorrelationID + "} ${status} ${method} ${path} ${latency}\n",
	}
	if cfg.AccessLogOutput != nil {
		accessLog.Output = cfg.AccessLogOutput
	}

	app.Use(recover.New())
	app.Use(CorrelationID())
	app.Use(Observability(requestLogger))
	app.Use(logger.New(accessLog))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + HeaderCorrelationID + ", " + HeaderSeedToken,
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		ExposeHeaders: HeaderCorrelationID + ", Content-Disposition, X-RateLimit-Remaining",
	}))
}
