package server

import (
	"net/http"
	"sync"
	"time"

	"chaos-room/internal/config"
	"chaos-room/internal/room"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Server struct {
	store    *Store
	db       *gorm.DB
	relay    *relayHub
	cfg      config.Config
	timersMu sync.Mutex
	timers   map[string]*time.Timer

	replicasMu sync.Mutex
	replicas   map[string]room.State
}

// New builds the relay server. conn may be nil, in which case round results
// are only kept in memory.
func New(conn *gorm.DB, cfg config.Config) *Server {
	registerValidators()
	return &Server{
		store:  NewStore(),
		db:     conn,
		relay:  newRelayHub(),
		cfg:    cfg,
		timers:   make(map[string]*time.Timer),
		replicas: make(map[string]room.State),
	}
}

func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "healthy") })
	r.GET("/", s.handleHome)
	r.GET("/rooms/:code", s.handleRoomView)

	api := r.Group("/api")
	api.POST("/rooms", s.handleCreateRoom)
	api.GET("/rooms/:code", s.handleGetRoom)
	api.GET("/rooms/:code/qr.png", s.handleRoomQR)
	api.GET("/rooms/:code/results", s.handleRoomResults)

	r.GET("/ws/channels/:channel", s.handleRelay)
	return r
}
