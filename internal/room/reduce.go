package room

import "chaos-room/internal/protocol"

// Reduce folds one action into the replica and returns the new state plus the
// effects the caller must run. It never mutates s. self is the local player's
// id; it only affects which effects are emitted, never the resulting state.
func Reduce(s State, self string, action protocol.Action) (State, []Effect) {
	if action.RoomCode != s.Room.Code {
		return s, nil
	}
	switch payload := action.Payload.(type) {
	case protocol.PlayerJoined:
		return reduceJoin(s, payload)
	case protocol.PlayerLeft:
		return reduceLeave(s, action.SenderID)
	case protocol.RoomSnapshot:
		return reduceSnapshot(s, action.SenderID, payload)
	case protocol.ReadyToggle:
		return reduceReady(s, action.SenderID)
	case protocol.StartGame:
		return reduceStart(s, action.SenderID, payload)
	case protocol.SubmitAnswer:
		return reduceSubmit(s, action.SenderID, payload)
	case protocol.ChatMessage:
		return reduceChat(s, action.SenderID, payload)
	case protocol.DrawStroke:
		return reduceStroke(s, self, action.SenderID, payload)
	case protocol.FinishRound:
		return reduceFinish(s, action.SenderID, payload)
	default:
		return s, nil
	}
}

// Replay folds a sequence of actions from a starting state, discarding effects.
func Replay(s State, self string, actions []protocol.Action) State {
	for _, action := range actions {
		s, _ = Reduce(s, self, action)
	}
	return s
}

func reduceJoin(s State, payload protocol.PlayerJoined) (State, []Effect) {
	joined := payload.Player
	if joined.ID == "" {
		return s, nil
	}
	if i := s.Room.indexOf(joined.ID); i >= 0 {
		existing := s.Room.Players[i]
		if existing.Left {
			s.Room.Players = clonePlayers(s.Room.Players)
			s.Room.Players[i].Left = false
			existing = s.Room.Players[i]
		}
		return s, []Effect{JoinObserved{Player: existing}}
	}
	if s.Room.presentCount() >= MaxPlayers {
		return s, nil
	}
	joined.Score = 0
	joined.Left = false
	if _, hasHost := s.Room.Host(); hasHost {
		joined.IsHost = false
	}
	s.Room.Players = append(clonePlayers(s.Room.Players), joined)
	return s, []Effect{JoinObserved{Player: joined, New: true}}
}

func reduceLeave(s State, sender string) (State, []Effect) {
	i := s.Room.indexOf(sender)
	if i < 0 || s.Room.Players[i].Left {
		return s, nil
	}
	players := clonePlayers(s.Room.Players)
	wasHost := players[i].IsHost
	players[i].Left = true
	players[i].IsReady = false
	players[i].IsHost = false
	s.Room.Players = players

	effects := []Effect{PlayerDeparted{PlayerID: sender}}
	if !wasHost {
		return s, effects
	}
	for j := range players {
		if players[j].Left {
			continue
		}
		players[j].IsHost = true
		effects = append(effects, HostChanged{PreviousID: sender, HostID: players[j].ID})
		break
	}
	return s, effects
}

func reduceSnapshot(s State, sender string, payload protocol.RoomSnapshot) (State, []Effect) {
	var snapshotHost string
	for _, player := range payload.Players {
		if player.IsHost {
			snapshotHost = player.ID
			break
		}
	}
	if snapshotHost == "" || snapshotHost != sender {
		return s, nil
	}
	if host, ok := s.Room.Host(); ok && host.ID != sender {
		return s, nil
	}
	if payload.Round < s.Room.Round {
		return s, nil
	}

	catchUp := payload.Round > s.Room.Round
	s.Room.Players = mergeSnapshotPlayers(s.Room.Players, payload.Players, sender, catchUp)

	var effects []Effect
	if catchUp {
		s.Room.Status = payload.Status
		s.Room.Round = payload.Round
		s.Room.MaxRounds = payload.MaxRounds
		s.Room.CurrentTask = nil
		if payload.Task != nil {
			task := payload.Task.Clone()
			s.Room.CurrentTask = &task
		}
		s.Submissions = nil
		if payload.ResolvedRound > s.ResolvedRound {
			s.ResolvedRound = payload.ResolvedRound
		}
		effects = append(effects, ResetRoundInputs{Round: s.Room.Round})
		if s.RoundOpen() && s.Room.CurrentTask != nil {
			effects = append(effects, ResetTimer{Seconds: s.Room.CurrentTask.TimerSeconds})
		}
	}
	return s, effects
}

// mergeSnapshotPlayers takes the snapshot's order and host flag. Players the
// replica already knows keep their own ready, score and left fields, which
// only their own actions and FINISH_ROUND may change. When the snapshot is a
// round ahead, scores are raised to the snapshot's so a late joiner catches
// up; the snapshot's ResolvedRound then keeps those rounds from scoring twice.
// Local players missing from the snapshot, self included, are kept after it.
func mergeSnapshotPlayers(local, snapshot []protocol.Player, host string, catchUp bool) []protocol.Player {
	byID := make(map[string]protocol.Player, len(local))
	budget := MaxPlayers
	for _, player := range local {
		byID[player.ID] = player
		if !player.Left {
			budget--
		}
	}

	placed := make(map[string]struct{}, len(snapshot)+len(local))
	players := make([]protocol.Player, 0, len(snapshot)+len(local))
	for _, incoming := range snapshot {
		if _, dup := placed[incoming.ID]; dup || incoming.ID == "" {
			continue
		}
		merged, known := byID[incoming.ID]
		switch {
		case known:
			if catchUp && incoming.Score > merged.Score {
				merged.Score = incoming.Score
			}
		case incoming.Left:
			merged = incoming
		case budget > 0:
			merged = incoming
			budget--
		default:
			continue
		}
		merged.IsHost = merged.ID == host
		placed[merged.ID] = struct{}{}
		players = append(players, merged)
	}
	for _, player := range local {
		if _, ok := placed[player.ID]; ok {
			continue
		}
		player.IsHost = false
		players = append(players, player)
	}
	return players
}

func reduceReady(s State, sender string) (State, []Effect) {
	i := s.Room.indexOf(sender)
	if i < 0 || s.Room.Players[i].Left {
		return s, nil
	}
	players := clonePlayers(s.Room.Players)
	players[i].IsReady = !players[i].IsReady
	s.Room.Players = players
	return s, nil
}

func reduceStart(s State, sender string, payload protocol.StartGame) (State, []Effect) {
	if !s.Room.IsHost(sender) {
		return s, nil
	}
	if payload.Round != s.Room.Round+1 || payload.Round > s.Room.MaxRounds {
		return s, nil
	}
	if payload.Task.TimerSeconds <= 0 {
		return s, nil
	}
	task := payload.Task.Clone()
	s.Room.Status = protocol.StatusPlaying
	s.Room.CurrentTask = &task
	s.Room.Round = payload.Round
	s.Submissions = nil

	effects := []Effect{
		ResetTimer{Seconds: task.TimerSeconds},
		ResetRoundInputs{Round: payload.Round},
	}
	if task.Type == protocol.TaskDrawing {
		effects = append(effects, ClearCanvas{})
	}
	return s, effects
}

// reduceSubmit keeps duplicate submissions from one player; judges decide how
// to weigh them.
func reduceSubmit(s State, sender string, payload protocol.SubmitAnswer) (State, []Effect) {
	if !s.Room.activeSender(sender) || !s.RoundOpen() || payload.Round != s.Room.Round {
		return s, nil
	}
	sub := Submission{
		PlayerID:   sender,
		PlayerName: payload.PlayerName,
		Round:      payload.Round,
		Text:       payload.Text,
		Drawing:    append([]byte(nil), payload.Drawing...),
	}
	s.Submissions = append(append([]Submission(nil), s.Submissions...), sub)
	return s, []Effect{SubmissionReceived{Submission: sub}}
}

func reduceChat(s State, sender string, payload protocol.ChatMessage) (State, []Effect) {
	if !s.Room.activeSender(sender) {
		return s, nil
	}
	msg := ChatMessage{SenderName: payload.SenderName, Text: payload.Text}
	s.Chat = append(append([]ChatMessage(nil), s.Chat...), msg)
	return s, []Effect{ChatAppended{Message: msg}}
}

func reduceStroke(s State, self, sender string, payload protocol.DrawStroke) (State, []Effect) {
	if sender == self || !s.Room.activeSender(sender) {
		return s, nil
	}
	return s, []Effect{RenderStroke{SenderID: sender, Stroke: payload}}
}

func reduceFinish(s State, sender string, payload protocol.FinishRound) (State, []Effect) {
	if !s.Room.IsHost(sender) {
		return s, nil
	}
	if payload.Round != s.Room.Round || payload.Round <= s.ResolvedRound {
		return s, nil
	}
	s.ResolvedRound = payload.Round

	var winnerID string
	if i := winnerIndex(s.Room.Players, payload.Result); i >= 0 {
		players := clonePlayers(s.Room.Players)
		players[i].Score += RoundScore
		s.Room.Players = players
		winnerID = players[i].ID
	}
	return s, []Effect{ShowResults{
		Round:    payload.Round,
		Result:   payload.Result,
		WinnerID: winnerID,
		GameOver: payload.Round >= s.Room.MaxRounds,
	}}
}

// winnerIndex resolves the judge's verdict to a player. An id wins over a
// name; a name shared by several players scores nobody.
func winnerIndex(players []protocol.Player, result protocol.WinnerInfo) int {
	if result.WinnerID != "" {
		for i := range players {
			if players[i].ID == result.WinnerID {
				return i
			}
		}
	}
	match := -1
	for i := range players {
		if players[i].Name != result.Winner {
			continue
		}
		if match >= 0 {
			return -1
		}
		match = i
	}
	return match
}
