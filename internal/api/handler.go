package api

import (
	"net/http"

	"order-gateway/internal/events"
	"order-gateway/internal/gateway"
	"order-gateway/internal/monitor"
	"order-gateway/pkg/db"

	"github.com/gin-gonic/gin"
)

// Server wires HTTP endpoints around the order facade.
type Server struct {
	Router  *gin.Engine
	Facade  *gateway.Facade
	Bus     *events.Bus
	DB      *db.Database
	Metrics *monitor.Metrics

	Username  string
	Password  string
	JWTSecret string

	Meta SystemMeta
}

// SystemMeta describes runtime status exposed to clients.
type SystemMeta struct {
	OpenTime  string
	CloseTime string
	MaxPerSec int
	Version   string
}

// NewServer builds the router with the full middleware stack.
func NewServer(facade *gateway.Facade, bus *events.Bus, database *db.Database, metrics *monitor.Metrics, username, password, jwtSecret string, meta SystemMeta) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())
	r.Use(CORSMiddleware())

	s := &Server{
		Router:    r,
		Facade:    facade,
		Bus:       bus,
		DB:        database,
		Metrics:   metrics,
		Username:  username,
		Password:  password,
		JWTSecret: jwtSecret,
		Meta:      meta,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.POST("/login", s.login)
		api.GET("/session", s.sessionStatus)
		api.GET("/responses", s.listResponses)
		api.GET("/metrics", s.metrics)
	}

	orders := api.Group("/orders")
	orders.Use(AuthMiddleware(s.JWTSecret))
	{
		orders.POST("", s.submitOrder)
		orders.PUT("/:id", s.modifyOrder)
		orders.DELETE("/:id", s.cancelOrder)
		orders.GET("/pending", s.pendingOrders)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"phase":   s.Facade.Phase().String(),
		"version": s.Meta.Version,
	})
}
