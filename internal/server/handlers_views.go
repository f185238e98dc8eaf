package server

import (
	"net/http"

	"chaos-room/internal/protocol"
	"chaos-room/internal/transport"
	"chaos-room/internal/web"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func (s *Server) handleHome(c *gin.Context) {
	templ.Handler(web.Home()).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handleRoomView(c *gin.Context) {
	code := c.Param("code")
	if !protocol.ValidRoomCode(code) {
		c.Redirect(http.StatusFound, "/")
		return
	}
	if _, ok := s.store.GetRoom(code); !ok {
		log.Info().Str("room", code).Msg("room view missing room")
		c.Redirect(http.StatusFound, "/")
		return
	}
	templ.Handler(web.RoomView(code, transport.DefaultChannel)).ServeHTTP(c.Writer, c.Request)
}
