package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/confshare/confshare-go/api/budgethub"
	"github.com/confshare/confshare-go/api/controllers"
	"github.com/confshare/confshare-go/api/middlewares"
	"github.com/confshare/confshare-go/registry"
	"github.com/confshare/confshare-go/session"
	"github.com/confshare/confshare-go/tool"
)

// Server is the localhost HTTP surface the rendering layer talks to. It owns
// no share state; everything lives in the session controller.
type Server struct {
	port   int
	engine *gin.Engine
	server *http.Server
	hub    *budgethub.Hub
	mu     sync.RWMutex
}

// NewServer wires the controller and registry into a server on port.
func NewServer(port int, ctrl *session.Controller, reg *registry.Registry) *Server {
	controllers.SetShareController(ctrl, reg)

	hub := budgethub.New()
	ctrl.OnBudgetChanged(hub.Broadcast)

	return &Server{
		port: port,
		hub:  hub,
	}
}

func (s *Server) setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	v1 := engine.Group("/api/confshare/v1", middlewares.OnlyAllowLocal)
	{
		v1.POST("/session/open", controllers.OpenShareSession)
		v1.POST("/session/close", controllers.CloseShareSession)
		v1.GET("/session/items", controllers.ListShareItems)
		v1.POST("/session/toggle", controllers.ToggleShareItem)
		v1.POST("/session/message-count", controllers.SetMessageCount)
		v1.POST("/session/password", controllers.SetSessionPassword)
		v1.GET("/session/budget", controllers.GetBudget)
		v1.POST("/session/generate", controllers.GenerateShareLink)
		v1.GET("/share/:shareId/qrcode", controllers.GetShareQRCode)
		v1.GET("/create-qr-code", controllers.GenerateQRCode) // QR code PNG (same params as api.qrserver.com)
		v1.GET("/budget-ws", budgethub.HandleBudgetWS(s.hub))
		v1.GET("/status", controllers.UserStatus)
		v1.GET("/config", controllers.UserConfigGet)
		v1.PATCH("/config", controllers.UserConfigPatch)
	}

	return engine
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	engine := s.setupRoutes()

	s.mu.Lock()
	s.engine = engine
	s.server = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler: engine,
	}
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Starting share API on http://127.0.0.1:%d", s.port)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.RLock()
	server := s.server
	s.mu.RUnlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
