// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/videostreampro/adcore/app/dto"
	"github.com/videostreampro/adcore/app/handlers"
	"github.com/videostreampro/adcore/app/middleware"
	"github.com/videostreampro/adcore/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app               *fiber.App
	servingHandler    handlers.ServingHandlerInterface
	impressionHandler handlers.ImpressionHandlerInterface
	campaignHandler   handlers.CampaignHandlerInterface
	adHandler         handlers.AdHandlerInterface
	authMiddleware    *middleware.AuthMiddleware

	// PublicRateLimit/AuthRateLimit bound requests per minute for the
	// public-serving and bearer-auth route groups respectively
	// (config.ProductionConfig's rate-limit section).
	PublicRateLimit int
	AuthRateLimit   int
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	servingHandler handlers.ServingHandlerInterface,
	impressionHandler handlers.ImpressionHandlerInterface,
	campaignHandler handlers.CampaignHandlerInterface,
	adHandler handlers.AdHandlerInterface,
	authMiddleware *middleware.AuthMiddleware,
	publicRateLimit int,
	authRateLimit int,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "adcore API",
		ServerHeader: "adcore",
		ErrorHandler: errorHandler,
		BodyLimit:    4 * 1024 * 1024, // 4MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:               app,
		servingHandler:    servingHandler,
		impressionHandler: impressionHandler,
		campaignHandler:   campaignHandler,
		adHandler:         adHandler,
		authMiddleware:    authMiddleware,
		PublicRateLimit:   publicRateLimit,
		AuthRateLimit:     authRateLimit,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	// Apply general rate limiting to the public serving/confirm endpoints
	// (aligned with the operator-configured PublicRateLimit).
	publicLimit := limiter.New(limiter.Config{
		Max:        r.publicRateLimitOrDefault(),
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
	})

	// Spec §6: POST /ad/serve, POST /impression/confirm, GET /impression/:token — all public.
	ad := api.Group("/ad")
	ad.Use(publicLimit)
	ad.Post("/serve", r.servingHandler.ServeAd)

	impression := api.Group("/impression")
	impression.Use(publicLimit)
	impression.Post("/confirm", r.impressionHandler.Confirm)
	impression.Get("/:token", r.impressionHandler.Lookup)

	// Spec §6: campaign/ad CRUD, bearer-auth, team-scoped.
	authLimit := limiter.New(limiter.Config{
		Max:        r.authRateLimitOrDefault(),
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
	})

	teams := api.Group("/teams")
	teams.Use(authLimit)
	teams.Use(r.authMiddleware.Authenticate())

	teams.Post("/:team/campaigns", r.campaignHandler.CreateCampaign)
	teams.Put("/:team/campaigns/:campaign", r.campaignHandler.UpdateCampaign)
	teams.Delete("/:team/campaigns/:campaign", r.campaignHandler.DeleteCampaign)

	teams.Post("/:team/campaigns/:campaign/ads", r.adHandler.CreateAd)
	teams.Put("/:team/campaigns/:campaign/ads/:ad", r.adHandler.UpdateAd)
	teams.Delete("/:team/campaigns/:campaign/ads/:ad", r.adHandler.DeleteAd)

	teams.Post("/:team/logout", r.authMiddleware.Logout())

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

func (r *FiberRouter) publicRateLimitOrDefault() int {
	if r.PublicRateLimit > 0 {
		return r.PublicRateLimit
	}
	return 2000
}

func (r *FiberRouter) authRateLimitOrDefault() int {
	if r.AuthRateLimit > 0 {
		return r.AuthRateLimit
	}
	return 300
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Prometheus HTTP metrics
	r.app.Use(middleware.Metrics())

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000, // 1 year
		HSTSExcludeSubdomains:     false,
		ContentSecurityPolicy:     "default-src 'self'",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	// CORS middleware
	r.app.Use(cors.New(cors.Config{
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"X-Response-Time",
		},
		AllowCredentials: true,
		MaxAge:           utils.CORSMaxAge,
	}))

	// Compression middleware for performance
	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Advanced logging middleware
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	// Custom security middleware
	r.app.Use(r.securityMiddleware)

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Custom security middleware
func (r *FiberRouter) securityMiddleware(c fiber.Ctx) error {
	c.Set("X-Response-Time", utils.UTCNow().Format(time.RFC3339))
	c.Set("Server", "adcore")
	return c.Next()
}

// Start begins listening on the given address.
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// healthCheck reports basic service health.
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   "1.0.0",
			"service":   "adcore-api",
		},
	})
}

// notFoundHandler handles unmatched routes.
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

// errorHandler is the global Fiber error handler.
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)

	requestID := c.Locals("requestid")

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
