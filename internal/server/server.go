// Package server assembles the fiber application: middleware, routes and
// operational endpoints.
package server

import (
	"context"
	"errors"
	"time"

	"toyshop/internal/handlers"
	"toyshop/internal/logging"
	"toyshop/internal/metrics"
	"toyshop/internal/middleware"
	"toyshop/internal/services"
	"toyshop/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

const (
	csrfFormField     = "_csrf"
	defaultLoginLimit = 10
)

var errMissingCSRFToken = errors.New("missing csrf token")

// Options carries everything the application needs.
type Options struct {
	Logger   *zap.Logger
	Sessions *session.Manager

	// CSRFStorage keeps anti-forgery tokens; nil keeps them in process.
	CSRFStorage fiber.Storage

	Auth     *services.AuthService
	Toys     *services.ToyService
	Carts    *services.CartService
	Checkout *services.CheckoutService
	Orders   *services.OrderService
	Stats    *services.StatsService
	Tokens   *services.CheckoutTokens

	UploadDir     string
	SecureCookies bool
	AccessLog     bool

	// LoginLimit is the number of login attempts allowed per IP and minute.
	LoginLimit int

	// Ready reports whether backing stores answer; nil means always ready.
	Ready func(ctx context.Context) error
}

// New builds the fiber app.
func New(opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "toyshop",
		ErrorHandler: errorHandler(opts.Logger),
		BodyLimit:    8 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(metrics.Middleware())
	if opts.AccessLog {
		app.Use(logger.New(logger.Config{
			Next: func(c *fiber.Ctx) bool {
				return c.Path() == "/health" || c.Path() == "/metrics"
			},
		}))
	}

	app.Get("/health", healthHandler(opts.Ready))
	app.Get("/metrics", metrics.Handler())
	app.Static("/static/uploads", opts.UploadDir)

	app.Use(opts.Sessions.Middleware())
	app.Use(csrf.New(csrf.Config{
		ContextKey:     handlers.CSRFContextKey,
		CookieSameSite: "Lax",
		CookieSecure:   opts.SecureCookies,
		Expiration:     time.Hour,
		Storage:        opts.CSRFStorage,
		Extractor:      csrfExtractor,
	}))
	app.Use(middleware.LoadIdentity(opts.Auth, opts.Logger))

	loginLimit := opts.LoginLimit
	if loginLimit <= 0 {
		loginLimit = defaultLoginLimit
	}
	loginLimiter := limiter.New(limiter.Config{
		Max:        loginLimit,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many login attempts. Please try again later.",
			})
		},
	})

	handlers.NewCatalogHandler(opts.Toys, opts.Logger).RegisterRoutes(app)
	handlers.NewAuthHandler(opts.Auth, opts.Logger).RegisterRoutes(app, loginLimiter)
	handlers.NewCustomerHandler(opts.Auth, opts.Carts, opts.Checkout, opts.Orders, opts.Tokens, opts.Logger).RegisterRoutes(app)
	handlers.NewAdminHandler(opts.Auth, opts.Toys, opts.Orders, opts.Stats, opts.Logger).RegisterRoutes(app)

	return app
}

// csrfExtractor reads the token from the X-Csrf-Token header or the _csrf
// form field.
func csrfExtractor(c *fiber.Ctx) (string, error) {
	if token := c.Get(csrf.HeaderName); token != "" {
		return token, nil
	}
	if token := c.FormValue(csrfFormField); token != "" {
		return token, nil
	}
	return "", errMissingCSRFToken
}

func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			logging.Error(c.UserContext(), log, "request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}
		return c.Status(code).JSON(fiber.Map{"message": message})
	}
}

func healthHandler(ready func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		}
		if ready != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				status["status"] = "unhealthy"
				status["error"] = err.Error()
				return c.Status(fiber.StatusServiceUnavailable).JSON(status)
			}
		}
		return c.JSON(status)
	}
}
