package room

import (
	"testing"

	"chaos-room/internal/protocol"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const code = "ABCDE"

func player(id, name string, host bool) protocol.Player {
	return protocol.Player{ID: id, Name: name, Avatar: "fox", IsHost: host, IsReady: host}
}

func voteTask() protocol.Task {
	return protocol.Task{ID: "t1", Type: protocol.TaskVote, Title: "DEMOCRACY!", Description: "Who is the most suspicious?", TimerSeconds: 15}
}

func join(p protocol.Player) protocol.Action {
	return protocol.New(code, p.ID, protocol.PlayerJoined{Player: p})
}

func start(host string, round int, task protocol.Task) protocol.Action {
	return protocol.New(code, host, protocol.StartGame{Task: task, Round: round})
}

func submit(id, name, text string, round int) protocol.Action {
	return protocol.New(code, id, protocol.SubmitAnswer{PlayerName: name, Text: text, Round: round})
}

func finish(host string, round int, winner string) protocol.Action {
	return protocol.New(code, host, protocol.FinishRound{Round: round, Result: protocol.WinnerInfo{Winner: winner, Reason: "because"}})
}

// lobby returns the host's replica with p2 and p3 joined.
func lobby(t *testing.T) State {
	t.Helper()
	s := NewState(code, 5, player("p1", "P1", true))
	s = Replay(s, "p1", []protocol.Action{
		join(player("p2", "P2", false)),
		join(player("p3", "P3", false)),
	})
	require.Len(t, s.Room.Players, 3)
	return s
}

func TestJoinIsIdempotent(t *testing.T) {
	s := NewState(code, 5, player("p1", "P1", true))
	once, effects := Reduce(s, "p1", join(player("p2", "P2", false)))
	require.Equal(t, []Effect{JoinObserved{Player: once.Room.Players[1], New: true}}, effects)

	twice, effects := Reduce(once, "p1", join(player("p2", "P2", false)))
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("duplicate join changed state (-once +twice):\n%s", diff)
	}
	require.Equal(t, []Effect{JoinObserved{Player: once.Room.Players[1]}}, effects)
}

func TestJoinKeepsSingleHost(t *testing.T) {
	s := NewState(code, 5, player("p1", "P1", true))
	s, _ = Reduce(s, "p1", join(player("p2", "Usurper", true)))

	hosts := 0
	for _, p := range s.Room.Players {
		if p.IsHost {
			hosts++
		}
	}
	assert.Equal(t, 1, hosts)
	assert.True(t, s.Room.IsHost("p1"))
}

func TestJoinCapsPlayers(t *testing.T) {
	s := NewState(code, 5, player("p0", "P0", true))
	for i := 1; i < MaxPlayers+3; i++ {
		id := string(rune('a' + i))
		s, _ = Reduce(s, "p0", join(player(id, id, false)))
	}
	assert.Len(t, s.Room.Players, MaxPlayers)
}

func TestJoinScoreIsNotTrusted(t *testing.T) {
	s := NewState(code, 5, player("p1", "P1", true))
	cheat := player("p2", "P2", false)
	cheat.Score = 999
	s, _ = Reduce(s, "p1", join(cheat))
	assert.Equal(t, 0, s.Room.Players[1].Score)
}

func TestForeignRoomActionsAreIgnored(t *testing.T) {
	base := lobby(t)
	base, _ = Reduce(base, "p1", start("p1", 1, voteTask()))

	foreign := []protocol.Payload{
		protocol.PlayerJoined{Player: player("p9", "P9", false)},
		protocol.PlayerLeft{},
		protocol.ReadyToggle{},
		protocol.StartGame{Task: voteTask(), Round: 2},
		protocol.SubmitAnswer{PlayerName: "P2", Text: "P3", Round: 1},
		protocol.ChatMessage{SenderName: "P2", Text: "hi"},
		protocol.DrawStroke{X: 1, Y: 1, Color: "#ffffff"},
		protocol.FinishRound{Round: 1, Result: protocol.WinnerInfo{Winner: "P3"}},
		protocol.RoomSnapshot{Players: []protocol.Player{player("p1", "P1", true)}, Status: protocol.StatusPlaying, Round: 4, MaxRounds: 5},
	}
	for _, payload := range foreign {
		for _, sender := range []string{"p1", "p2"} {
			t.Run(string(payload.Kind())+"/"+sender, func(t *testing.T) {
				got, effects := Reduce(base, "p2", protocol.New("ZZZZZ", sender, payload))
				assert.Empty(t, effects)
				if diff := cmp.Diff(base, got); diff != "" {
					t.Fatalf("foreign action mutated state:\n%s", diff)
				}
			})
		}
	}
}

func TestReadyToggle(t *testing.T) {
	s := lobby(t)
	s, _ = Reduce(s, "p1", protocol.New(code, "p2", protocol.ReadyToggle{}))
	assert.True(t, s.Room.Players[1].IsReady)
	s, _ = Reduce(s, "p1", protocol.New(code, "p2", protocol.ReadyToggle{}))
	assert.False(t, s.Room.Players[1].IsReady)

	before := s
	s, _ = Reduce(s, "p1", protocol.New(code, "ghost", protocol.ReadyToggle{}))
	assert.Empty(t, cmp.Diff(before, s))
}

func TestStartGameTransitions(t *testing.T) {
	drawing := voteTask()
	drawing.Type = protocol.TaskDrawing
	drawing.TimerSeconds = 60

	s := lobby(t)
	s, effects := Reduce(s, "p2", start("p1", 1, drawing))
	assert.Equal(t, protocol.StatusPlaying, s.Room.Status)
	assert.Equal(t, 1, s.Room.Round)
	require.NotNil(t, s.Room.CurrentTask)
	assert.Equal(t, protocol.TaskDrawing, s.Room.CurrentTask.Type)
	assert.Equal(t, []Effect{ResetTimer{Seconds: 60}, ResetRoundInputs{Round: 1}, ClearCanvas{}}, effects)

	s, _ = Reduce(s, "p2", submit("p2", "P2", "x", 1))
	s, _ = Reduce(s, "p2", finish("p1", 1, "P2"))
	s, effects = Reduce(s, "p2", start("p1", 2, voteTask()))
	assert.Empty(t, s.Submissions)
	assert.Equal(t, []Effect{ResetTimer{Seconds: 15}, ResetRoundInputs{Round: 2}}, effects)
}

func TestRoundIsMonotonic(t *testing.T) {
	s := lobby(t)
	s, _ = Reduce(s, "p1", start("p1", 1, voteTask()))

	tests := []struct {
		name   string
		action protocol.Action
	}{
		{name: "duplicate start", action: start("p1", 1, voteTask())},
		{name: "skipped round", action: start("p1", 3, voteTask())},
		{name: "earlier round", action: start("p1", 0, voteTask())},
		{name: "non-host start", action: start("p2", 2, voteTask())},
		{name: "unknown sender", action: start("ghost", 2, voteTask())},
		{name: "stale snapshot", action: protocol.New(code, "p1", protocol.RoomSnapshot{Players: s.Room.Players, Status: protocol.StatusLobby, Round: 0, MaxRounds: 5})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, effects := Reduce(s, "p1", tc.action)
			assert.Empty(t, effects)
			assert.Equal(t, 1, got.Room.Round)
			assert.Empty(t, cmp.Diff(s, got))
		})
	}
}

func TestStartGameStopsAtMaxRounds(t *testing.T) {
	s := NewState(code, 1, player("p1", "P1", true))
	s, _ = Reduce(s, "p1", start("p1", 1, voteTask()))
	s, _ = Reduce(s, "p1", finish("p1", 1, "P1"))
	require.True(t, s.Finished())

	got, _ := Reduce(s, "p1", start("p1", 2, voteTask()))
	assert.Equal(t, 1, got.Room.Round)
}

func TestSubmissionWindow(t *testing.T) {
	s := lobby(t)
	s, _ = Reduce(s, "p1", submit("p2", "P2", "early", 1))
	assert.Empty(t, s.Submissions, "lobby accepts no submissions")

	s, _ = Reduce(s, "p1", start("p1", 1, voteTask()))
	s, _ = Reduce(s, "p1", submit("p2", "P2", "P3", 1))
	s, _ = Reduce(s, "p1", submit("p2", "P2", "P1", 1))
	s, _ = Reduce(s, "p1", submit("p3", "P3", "P3", 2))
	s, _ = Reduce(s, "p1", submit("ghost", "Ghost", "P3", 1))
	require.Len(t, s.Submissions, 2, "duplicates from one player are retained, other rounds and strangers are not")
	assert.Equal(t, "P3", s.Submissions[0].Text)
	assert.Equal(t, "P1", s.Submissions[1].Text)

	s, _ = Reduce(s, "p1", finish("p1", 1, "P3"))
	s, _ = Reduce(s, "p1", submit("p3", "P3", "late", 1))
	assert.Len(t, s.Submissions, 2, "resolved round is closed")
}

func TestFinishRoundScoresOnce(t *testing.T) {
	s := lobby(t)
	s, _ = Reduce(s, "p1", start("p1", 1, voteTask()))

	once, effects := Reduce(s, "p1", finish("p1", 1, "P3"))
	require.Equal(t, []Effect{ShowResults{Round: 1, Result: protocol.WinnerInfo{Winner: "P3", Reason: "because"}, WinnerID: "p3"}}, effects)
	twice, effects := Reduce(once, "p1", finish("p1", 1, "P3"))
	assert.Empty(t, effects)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("duplicate finish changed state:\n%s", diff)
	}
	assert.Equal(t, RoundScore, twice.Room.Players[2].Score)
	assert.Equal(t, 0, twice.Room.Players[0].Score)
	assert.Equal(t, 0, twice.Room.Players[1].Score)
	assert.Equal(t, protocol.StatusPlaying, twice.Room.Status)
}

func TestFinishRoundGuards(t *testing.T) {
	s := lobby(t)
	s, _ = Reduce(s, "p1", start("p1", 1, voteTask()))

	_, effects := Reduce(s, "p1", finish("p2", 1, "P2"))
	assert.Empty(t, effects, "only the host finishes rounds")

	s, _ = Reduce(s, "p1", finish("p1", 1, "P3"))
	s, _ = Reduce(s, "p1", start("p1", 2, voteTask()))
	stale, effects := Reduce(s, "p1", finish("p1", 1, "P3"))
	assert.Empty(t, effects, "a verdict for an earlier round is discarded")
	assert.Equal(t, RoundScore, stale.Room.Players[2].Score)
}

func TestWinnerMatching(t *testing.T) {
	tests := []struct {
		name   string
		result protocol.WinnerInfo
		want   string
	}{
		{name: "by name", result: protocol.WinnerInfo{Winner: "P2"}, want: "p2"},
		{name: "fallback verdict", result: protocol.WinnerInfo{Winner: "The Void"}, want: ""},
		{name: "case sensitive", result: protocol.WinnerInfo{Winner: "p2"}, want: ""},
		{name: "id beats name", result: protocol.WinnerInfo{Winner: "P2", WinnerID: "p3"}, want: "p3"},
		{name: "unknown id falls back to name", result: protocol.WinnerInfo{Winner: "P2", WinnerID: "nobody"}, want: "p2"},
		{name: "shared name is ambiguous", result: protocol.WinnerInfo{Winner: "Twin"}, want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := lobby(t)
			s, _ = Reduce(s, "p1", join(player("t1", "Twin", false)))
			s, _ = Reduce(s, "p1", join(player("t2", "Twin", false)))
			s, _ = Reduce(s, "p1", start("p1", 1, voteTask()))
			s, _ = Reduce(s, "p1", protocol.New(code, "p1", protocol.FinishRound{Round: 1, Result: tc.result}))

			for _, p := range s.Room.Players {
				want := 0
				if p.ID == tc.want {
					want = RoundScore
				}
				assert.Equal(t, want, p.Score, "player %s", p.ID)
			}
		})
	}
}

func TestSelfStrokeExclusion(t *testing.T) {
	s := lobby(t)
	stroke := protocol.DrawStroke{PrevX: 1, PrevY: 1, X: 5, Y: 5, Color: "#ffffff"}

	_, effects := Reduce(s, "p2", protocol.New(code, "p2", stroke))
	assert.Empty(t, effects)

	got, effects := Reduce(s, "p2", protocol.New(code, "p3", stroke))
	assert.Equal(t, []Effect{RenderStroke{SenderID: "p3", Stroke: stroke}}, effects)
	assert.Empty(t, cmp.Diff(s, got), "strokes are never stored")

	_, effects = Reduce(s, "p2", protocol.New(code, "p3", stroke))
	assert.Len(t, effects, 1, "repeated strokes are rendered again")
}

func TestChatLog(t *testing.T) {
	s := lobby(t)
	s, _ = Reduce(s, "p1", protocol.New(code, "p2", protocol.ChatMessage{SenderName: "P2", Text: "hello"}))
	s, _ = Reduce(s, "p1", protocol.New(code, "p3", protocol.ChatMessage{SenderName: "P3", Text: "hello"}))
	s, _ = Reduce(s, "p1", protocol.New(code, "ghost", protocol.ChatMessage{SenderName: "Ghost", Text: "boo"}))
	assert.Equal(t, []ChatMessage{{SenderName: "P2", Text: "hello"}, {SenderName: "P3", Text: "hello"}}, s.Chat)
}

func TestPlayerLeftHandsOffHost(t *testing.T) {
	s := lobby(t)
	s, effects := Reduce(s, "p2", protocol.New(code, "p1", protocol.PlayerLeft{}))
	assert.Equal(t, []Effect{PlayerDeparted{PlayerID: "p1"}, HostChanged{PreviousID: "p1", HostID: "p2"}}, effects)
	assert.True(t, s.Room.IsHost("p2"))
	assert.Len(t, s.Room.Players, 3, "players are never removed")
	assert.True(t, s.Room.Players[0].Left)

	again, effects := Reduce(s, "p2", protocol.New(code, "p1", protocol.PlayerLeft{}))
	assert.Empty(t, effects)
	assert.Empty(t, cmp.Diff(s, again))

	_, effects = Reduce(s, "p2", start("p1", 1, voteTask()))
	assert.Empty(t, effects, "departed host has no authority")
	s, effects = Reduce(s, "p2", start("p2", 1, voteTask()))
	assert.NotEmpty(t, effects)
	assert.Equal(t, 1, s.Room.Round)

	s, _ = Reduce(s, "p2", join(player("p1", "P1", true)))
	assert.False(t, s.Room.Players[0].Left)
	assert.False(t, s.Room.Players[0].IsHost, "rejoining does not restore host")
}

func TestSnapshotTeachesLateJoiner(t *testing.T) {
	host := lobby(t)
	host, _ = Reduce(host, "p1", start("p1", 1, voteTask()))
	host, _ = Reduce(host, "p1", finish("p1", 1, "P3"))

	late := NewState(code, 5, player("p4", "P4", false))
	late, _ = Reduce(late, "p4", start("p1", 1, voteTask()))
	require.Equal(t, 0, late.Room.Round, "unknown host cannot start rounds")

	snapshot := protocol.RoomSnapshot{
		Players:       append(host.Room.Players, player("p4", "P4", false)),
		Status:        host.Room.Status,
		Round:         host.Room.Round,
		ResolvedRound: host.ResolvedRound,
		MaxRounds:     host.Room.MaxRounds,
		Task:          host.Room.CurrentTask,
	}
	forged, _ := Reduce(late, "p4", protocol.New(code, "p2", snapshot))
	assert.Empty(t, cmp.Diff(late, forged), "snapshot must come from the host it names")

	late, effects := Reduce(late, "p4", protocol.New(code, "p1", snapshot))
	assert.Equal(t, []Effect{ResetRoundInputs{Round: 1}}, effects)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, ids(late.Room.Players))
	assert.Equal(t, RoundScore, late.Room.Players[2].Score)
	assert.Equal(t, 1, late.ResolvedRound)

	late, _ = Reduce(late, "p4", finish("p1", 1, "P3"))
	assert.Equal(t, RoundScore, late.Room.Players[2].Score, "snapshot carries the scoring guard")
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := lobby(t)
	s, _ = Reduce(s, "p1", start("p1", 1, voteTask()))
	s, _ = Reduce(s, "p1", submit("p2", "P2", "P3", 1))
	frozen := s.Clone()

	actions := []protocol.Action{
		protocol.New(code, "p2", protocol.ReadyToggle{}),
		submit("p3", "P3", "P2", 1),
		finish("p1", 1, "P3"),
		protocol.New(code, "p1", protocol.PlayerLeft{}),
		join(player("p5", "P5", false)),
	}
	for _, action := range actions {
		_, _ = Reduce(s, "p1", action)
		if diff := cmp.Diff(frozen, s); diff != "" {
			t.Fatalf("%s mutated its input:\n%s", action.Kind(), diff)
		}
	}
}

func TestScenarioThreePlayersConverge(t *testing.T) {
	log := []protocol.Action{
		join(player("p1", "P1", true)),
		join(player("p2", "P2", false)),
		join(player("p3", "P3", false)),
		start("p1", 1, voteTask()),
		submit("p1", "P1", "P3", 1),
		submit("p2", "P2", "P3", 1),
		finish("p1", 1, "P3"),
		finish("p1", 1, "P3"),
	}
	replicas := map[string]State{}
	for _, self := range []string{"p1", "p2", "p3"} {
		s := State{Room: Room{Code: code, Status: protocol.StatusLobby, MaxRounds: 5}}
		replicas[self] = Replay(s, self, log)
	}

	host := replicas["p1"]
	assert.Equal(t, []string{"p1", "p2", "p3"}, ids(host.Room.Players))
	assert.Equal(t, protocol.StatusPlaying, host.Room.Status)
	assert.Equal(t, 1, host.Room.Round)
	assert.Equal(t, []int{0, 0, RoundScore}, scores(host.Room.Players))
	assert.Len(t, host.Submissions, 2)

	for self, replica := range replicas {
		if diff := cmp.Diff(host, replica); diff != "" {
			t.Fatalf("replica %s diverged (-host +replica):\n%s", self, diff)
		}
	}
}

func ids(players []protocol.Player) []string {
	out := make([]string, 0, len(players))
	for _, p := range players {
		out = append(out, p.ID)
	}
	return out
}

func scores(players []protocol.Player) []int {
	out := make([]int, 0, len(players))
	for _, p := range players {
		out = append(out, p.Score)
	}
	return out
}
