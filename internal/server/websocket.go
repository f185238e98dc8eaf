package server

import (
	"net/http"
	"sync"
	"time"

	"chaos-room/internal/protocol"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const relayWriteTimeout = 5 * time.Second

// relayConn is one websocket on a channel. playerID and roomCode are learned
// from the query string and from the frames the connection sends.
type relayConn struct {
	conn     *websocket.Conn
	playerID string
	limiter  *rate.Limiter

	mu       sync.Mutex
	roomCode string
	left     bool
}

func (rc *relayConn) send(data []byte) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	_ = rc.conn.SetWriteDeadline(time.Now().Add(relayWriteTimeout))
	return rc.conn.WriteMessage(websocket.TextMessage, data)
}

func (rc *relayConn) room() (string, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.roomCode, rc.left
}

func (rc *relayConn) observe(action protocol.Action) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.roomCode = action.RoomCode
	if action.Kind() == protocol.KindPlayerLeft {
		rc.left = true
	}
	if action.Kind() == protocol.KindPlayerJoined {
		rc.left = false
	}
}

type relayHub struct {
	mu       sync.Mutex
	channels map[string]map[*relayConn]struct{}
}

func newRelayHub() *relayHub {
	return &relayHub{channels: make(map[string]map[*relayConn]struct{})}
}

func (h *relayHub) Add(channel string, rc *relayConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.channels[channel]
	if group == nil {
		group = make(map[*relayConn]struct{})
		h.channels[channel] = group
	}
	group[rc] = struct{}{}
}

func (h *relayHub) Remove(channel string, rc *relayConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.channels[channel]
	if group == nil {
		return
	}
	delete(group, rc)
	_ = rc.conn.Close()
	if len(group) == 0 {
		delete(h.channels, channel)
	}
}

func (h *relayHub) Count(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels[channel])
}

// RoomPlayers counts the other connections that announced a player in code.
func (h *relayHub) RoomPlayers(channel, code string, except *relayConn) int {
	h.mu.Lock()
	conns := make([]*relayConn, 0, len(h.channels[channel]))
	for rc := range h.channels[channel] {
		if rc != except {
			conns = append(conns, rc)
		}
	}
	h.mu.Unlock()
	count := 0
	for _, rc := range conns {
		if room, left := rc.room(); room == code && !left && rc.playerID != "" {
			count++
		}
	}
	return count
}

// Broadcast writes one frame to every connection on the channel except from.
// Connections that fail to accept the write are dropped.
func (h *relayHub) Broadcast(channel string, from *relayConn, data []byte) {
	h.mu.Lock()
	group := h.channels[channel]
	conns := make([]*relayConn, 0, len(group))
	for rc := range group {
		if rc != from {
			conns = append(conns, rc)
		}
	}
	h.mu.Unlock()

	for _, rc := range conns {
		if err := rc.send(data); err != nil {
			h.Remove(channel, rc)
		}
	}
}

func (s *Server) handleRelay(c *gin.Context) {
	var uri channelURI
	if !bindURI(c, &uri) {
		return
	}
	var query relayQuery
	if !bindQuery(c, &query) {
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	rc := &relayConn{
		conn:     conn,
		playerID: query.PlayerID,
		limiter:  rate.NewLimiter(rate.Limit(s.cfg.StrokesPerSecond), s.cfg.StrokesPerSecond),
	}
	s.relay.Add(uri.Channel, rc)
	log.Info().Str("channel", uri.Channel).Str("player", rc.playerID).Str("remote", c.Request.RemoteAddr).Msg("relay connected")
	go s.readRelay(uri.Channel, rc)
}

func (s *Server) readRelay(channel string, rc *relayConn) {
	defer s.dropRelay(channel, rc)
	for {
		_, data, err := rc.conn.ReadMessage()
		if err != nil {
			log.Info().Str("channel", channel).Str("player", rc.playerID).Err(err).Msg("relay disconnected")
			return
		}
		action, err := protocol.Decode(data)
		if err != nil {
			log.Debug().Err(err).Str("channel", channel).Msg("dropping undecodable frame")
			continue
		}
		if !s.admit(channel, rc, action) {
			continue
		}
		rc.observe(action)
		frame, err := protocol.Encode(action)
		if err != nil {
			continue
		}
		s.relay.Broadcast(channel, rc, frame)
		s.archive(action)
	}
}

// admit decides whether a frame is relayed. Frames must come from the player
// the connection announced, strokes and chat are rate limited, and joins
// beyond the player cap are refused.
func (s *Server) admit(channel string, rc *relayConn, action protocol.Action) bool {
	if rc.playerID != "" && action.SenderID != rc.playerID {
		log.Debug().Str("channel", channel).Str("player", rc.playerID).Str("sender", action.SenderID).Msg("dropping spoofed frame")
		return false
	}
	switch action.Kind() {
	case protocol.KindDrawStroke, protocol.KindChatMessage:
		if !rc.limiter.Allow() {
			log.Debug().Str("channel", channel).Str("player", rc.playerID).Msg("rate limited")
			return false
		}
	case protocol.KindPlayerJoined:
		if s.relay.RoomPlayers(channel, action.RoomCode, rc) >= s.cfg.MaxPlayers {
			log.Info().Str("room", action.RoomCode).Str("player", action.SenderID).Msg("room full")
			return false
		}
	}
	return true
}

// dropRelay removes the connection and, if it had announced a player that did
// not leave on its own, tells the rest of the channel that player is gone.
func (s *Server) dropRelay(channel string, rc *relayConn) {
	s.relay.Remove(channel, rc)
	code, left := rc.room()
	if rc.playerID == "" || code == "" || left {
		return
	}
	action := protocol.New(code, rc.playerID, protocol.PlayerLeft{Reason: "disconnected"})
	frame, err := protocol.Encode(action)
	if err != nil {
		return
	}
	s.relay.Broadcast(channel, nil, frame)
	s.archive(action)
}
