package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sellerops/fba-fees/pkg/logging"
)

// Config holds middleware configuration
type Config struct {
	Logger         *logging.Logger
	ServiceName    string
	QuietPaths     []string
	EnableCORS     bool
	AllowOrigins   []string
	TrustedProxies []string
}

// DefaultConfig returns a default middleware configuration
func DefaultConfig(serviceName string, logger *logging.Logger) *Config {
	return &Config{
		Logger:       logger,
		ServiceName:  serviceName,
		QuietPaths:   []string{"/health", "/ready", "/metrics"},
		EnableCORS:   true,
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Setup applies all standard middleware to a Gin router
func Setup(router *gin.Engine, config *Config) {
	InitValidator()

	if len(config.TrustedProxies) > 0 {
		_ = router.SetTrustedProxies(config.TrustedProxies)
	}

	router.Use(Recovery(config.Logger))
	router.Use(RequestIDs())
	router.Use(AccessLog(config.Logger, config.QuietPaths...))

	if config.EnableCORS {
		router.Use(CORS(config.AllowOrigins))
	}

	router.Use(ContentType())
}

// CORS allows browser clients from the given origins to call the API
func CORS(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			HeaderRequestID, HeaderCorrelationID,
			HeaderTenantID, HeaderSellerID, HeaderMarketplaceRegion,
		},
		ExposeHeaders:    []string{"Content-Length", HeaderRequestID, HeaderCorrelationID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// HealthCheck creates a health check handler
func HealthCheck(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": serviceName,
		})
	}
}

// ReadinessCheck creates a readiness check handler with custom check function
func ReadinessCheck(serviceName string, checkFn func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := checkFn(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not ready",
				"service": serviceName,
				"error":   err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "ready",
			"service": serviceName,
		})
	}
}

// NoRoute answers unknown paths with a ROUTE_NOT_FOUND body
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody(c, "ROUTE_NOT_FOUND", "The requested resource was not found", nil))
	}
}

// NoMethod answers unsupported methods with a METHOD_NOT_ALLOWED body
func NoMethod() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, errorBody(c, "METHOD_NOT_ALLOWED", "The request method is not supported for this resource", nil))
	}
}
