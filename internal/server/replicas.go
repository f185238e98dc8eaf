package server

import (
	"chaos-room/internal/protocol"
	"chaos-room/internal/room"
)

// track folds a membership or round action into the relay's replica of its
// room and reports whether the action finished a round. The relay replica
// only follows who the host is and which rounds are open or resolved.
func (s *Server) track(action protocol.Action) bool {
	s.replicasMu.Lock()
	defer s.replicasMu.Unlock()
	state, ok := s.replicas[action.RoomCode]
	if !ok {
		maxRounds := maxRoundsPerRoom
		if record, known := s.store.GetRoom(action.RoomCode); known && record.MaxRounds > 0 {
			maxRounds = record.MaxRounds
		}
		state = room.State{Room: room.Room{Code: action.RoomCode, Status: protocol.StatusLobby, MaxRounds: maxRounds}}
	}
	next, effects := room.Reduce(state, "", action)
	s.replicas[action.RoomCode] = next
	for _, effect := range effects {
		if _, finished := effect.(room.ShowResults); finished {
			return true
		}
	}
	return false
}

func (s *Server) forgetReplica(code string) {
	s.replicasMu.Lock()
	defer s.replicasMu.Unlock()
	delete(s.replicas, code)
}
