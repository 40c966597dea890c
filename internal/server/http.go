package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leafcare/terrarium-backend/internal/auth"
	"github.com/leafcare/terrarium-backend/internal/conf"
	locationservice "github.com/leafcare/terrarium-backend/internal/location/service"
	photoservice "github.com/leafcare/terrarium-backend/internal/photo/service"
	plantservice "github.com/leafcare/terrarium-backend/internal/plant/service"
	"github.com/leafcare/terrarium-backend/internal/pkg/logger"
	"github.com/leafcare/terrarium-backend/internal/session"
	speciesservice "github.com/leafcare/terrarium-backend/internal/species/service"
	userservice "github.com/leafcare/terrarium-backend/internal/user/service"
)

// Services groups the route providers mounted under /api/v1
type Services struct {
	User     *userservice.UserService
	Species  *speciesservice.SpeciesService
	Location *locationservice.LocationService
	Plant    *plantservice.PlantService
	Photo    *photoservice.PhotoService
}

type HTTPServer struct {
	server *http.Server
	logger *logger.Logger
}

func NewHTTPServer(
	config *conf.Config,
	log *logger.Logger,
	sessions *session.Manager,
	jwtMgr *auth.JWTManager,
	services *Services,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(logger.GinRecovery(log))
	router.Use(logger.GinLogger(log))
	router.Use(auth.Authenticate(sessions, jwtMgr, config.Auth.CookieName, log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// the content-addressed image tree is served as plain files
	router.Static("/public", config.Files.PublicDir)

	api := router.Group("/api/v1")
	services.User.RegisterRoutes(api)
	services.Species.RegisterRoutes(api)
	services.Location.RegisterRoutes(api)
	services.Plant.RegisterRoutes(api)
	services.Photo.RegisterRoutes(api)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)

	return &HTTPServer{
		server: &http.Server{
			Addr:    addr,
			Handler: router,
		},
		logger: log,
	}
}

func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}
