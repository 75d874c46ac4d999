package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/moyoez/mosaic/api/controllers"
	"github.com/moyoez/mosaic/api/middlewares"
	"github.com/moyoez/mosaic/api/templates"
	"github.com/moyoez/mosaic/tool"
	"github.com/moyoez/mosaic/types"
)

// Server serves the upload page and its API.
type Server struct {
	cfg    *types.AppConfig
	engine *gin.Engine
	server *http.Server
	mu     sync.RWMutex
}

// NewServer creates a server for cfg. The config must outlive the server.
func NewServer(cfg *types.AppConfig) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) setupRoutes() (*gin.Engine, error) {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	tmpl, err := templates.Parse()
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}

	engine := gin.Default()
	engine.SetHTMLTemplate(tmpl)

	engine.GET("/", middlewares.Session, controllers.HandleIndex)
	engine.POST("/submit", middlewares.Session, controllers.HandleSubmit)

	v1 := engine.Group("/api/mosaic/v1")
	{
		v1.POST("/selection", middlewares.RateLimit(s.cfg.UploadRateLimit), middlewares.Session, controllers.HandleSelection)
		v1.POST("/validate", controllers.HandleValidate)
		v1.GET("/previews", middlewares.Session, controllers.HandleGetPreviews)
		v1.GET("/notify-ws", middlewares.Session, controllers.HandleNotifyWS)
		v1.GET("/status", controllers.HandleStatus)
	}
	self := engine.Group("/api/self/v1", middlewares.OnlyAllowLocal)
	{
		self.GET("/config", controllers.UserConfigGet)
		self.PATCH("/config", controllers.UserConfigPatch)
		self.GET("/create-qr-code", controllers.GenerateQRCode) // QR code PNG (same params as api.qrserver.com)
	}
	return engine, nil
}

// Handler builds the routes without listening. Used by tests.
func (s *Server) Handler() (http.Handler, error) {
	return s.setupRoutes()
}

// Start starts the HTTP server and blocks until it stops.
// It returns nil after Shutdown.
func (s *Server) Start() error {
	engine, err := s.setupRoutes()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.engine = engine
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: engine,
	}
	s.mu.Unlock()

	address := fmt.Sprintf("%s://0.0.0.0:%d", s.cfg.Protocol, s.cfg.Port)
	tool.DefaultLogger.Infof("[Server] Starting on %s", address)
	tool.DefaultLogger.Infof("[Server] Open %s from a device on this network", tool.BuildPageURL(s.cfg.Protocol, tool.PreferredLocalIPv4(), s.cfg.Port))

	if s.cfg.Protocol == "https" {
		cert, generated, err := tool.GetOrCreateTLSCertFromConfig(s.cfg)
		if err != nil {
			return fmt.Errorf("failed to get TLS certificate: %w", err)
		}
		if generated {
			tool.PersistAppConfig(s.cfg)
		}
		s.mu.Lock()
		s.server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
		}
		s.mu.Unlock()
		tool.DefaultLogger.Infof("[Server] TLS certificate configured for HTTPS")
		err = s.server.ListenAndServeTLS("", "")
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}

	err = s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for active ones until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
