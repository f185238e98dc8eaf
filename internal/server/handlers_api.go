package server

import (
	"net/http"

	"chaos-room/internal/transport"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

func (s *Server) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &req, bindMessages{
			"MaxRounds": {
				"gte": "max_rounds must be at least 1",
				"lte": "max_rounds must be 20 or fewer",
			},
		}, "invalid room settings") {
			return
		}
	}
	maxRounds := req.MaxRounds
	if maxRounds == 0 {
		maxRounds = min(s.cfg.MaxRounds, maxRoundsPerRoom)
	}
	room, err := s.store.CreateRoom(maxRounds)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err := s.persistRoom(room); err != nil {
		log.Warn().Err(err).Str("room", room.Code).Msg("persist room")
	}
	s.scheduleRoomExpiry(room.Code)
	log.Info().Str("room", room.Code).Int("max_rounds", room.MaxRounds).Msg("room created")
	c.JSON(http.StatusCreated, gin.H{
		"code":       room.Code,
		"max_rounds": room.MaxRounds,
		"channel":    transport.DefaultChannel,
		"join_url":   "/rooms/" + room.Code,
		"qr_url":     "/api/rooms/" + room.Code + "/qr.png",
	})
}

func (s *Server) handleGetRoom(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	room, ok := s.store.GetRoom(uri.Code)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":       room.Code,
		"max_rounds": room.MaxRounds,
		"channel":    transport.DefaultChannel,
		"rounds":     len(room.Results),
	})
}

func (s *Server) handleRoomQR(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	joinURL := scheme + "://" + c.Request.Host + "/rooms/" + uri.Code
	png, err := qrcode.Encode(joinURL, qrcode.Medium, qrSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "qr generation failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) handleRoomResults(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	results, err := s.loadResults(uri.Code)
	if err != nil {
		log.Warn().Err(err).Str("room", uri.Code).Msg("load results")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "results unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    uri.Code,
		"results": results,
	})
}
