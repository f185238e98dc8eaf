package content

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"chaos-room/internal/protocol"
	"chaos-room/internal/room"

	"github.com/google/uuid"
)

type taskTemplate struct {
	Title         string
	Description   string
	TimerSeconds  int
	CorrectAnswer string
}

var staticTasks = map[protocol.TaskType][]taskTemplate{
	protocol.TaskDrawing: {
		{Title: "DISCO DUCK", Description: "A duck wearing a tuxedo at a disco", TimerSeconds: 60},
		{Title: "OFFICE DRAGON", Description: "A dragon filing its taxes at a tiny desk", TimerSeconds: 60},
		{Title: "HAUNTED SNACK", Description: "A vending machine that is clearly haunted", TimerSeconds: 60},
	},
	protocol.TaskFastestFinger: {
		{Title: "QUICK MATHS", Description: "What is 17 times 3?", TimerSeconds: 20, CorrectAnswer: "51"},
		{Title: "TONGUE TWISTER", Description: "Type exactly: purple pangolins prance promptly", TimerSeconds: 25, CorrectAnswer: "purple pangolins prance promptly"},
		{Title: "SQUARE UP", Description: "What is 12 squared?", TimerSeconds: 20, CorrectAnswer: "144"},
	},
	protocol.TaskLieDetector: {
		{Title: "ALIBI", Description: "Convince us where you were when the office cake vanished", TimerSeconds: 45},
		{Title: "EXPERT WITNESS", Description: "Tell us a convincing fact about the secret life of pigeons", TimerSeconds: 45},
	},
	protocol.TaskVote: {
		{Title: "CULT WATCH", Description: "Who is most likely to accidentally join a cult?", TimerSeconds: 15},
		{Title: "SURVIVOR", Description: "Who would last longest on a deserted island?", TimerSeconds: 15},
		{Title: "DEMOCRACY!", Description: "Who is the most suspicious person in this room?", TimerSeconds: 15},
	},
}

// StaticGenerator picks tasks from a built-in table. Pick chooses an index in
// [0,n); it defaults to math/rand.
type StaticGenerator struct {
	Pick func(n int) int
}

func (g StaticGenerator) GenerateTask(_ context.Context, round int, players []string) (protocol.Task, error) {
	pick := g.Pick
	if pick == nil {
		pick = rand.IntN
	}
	mode := protocol.TaskTypes[pick(len(protocol.TaskTypes))]
	templates := staticTasks[mode]
	if len(templates) == 0 {
		return protocol.Task{}, fmt.Errorf("no tasks for mode %s", mode)
	}
	tmpl := templates[pick(len(templates))]
	task := protocol.Task{
		ID:           uuid.NewString(),
		Type:         mode,
		Title:        tmpl.Title,
		Description:  tmpl.Description,
		TimerSeconds: tmpl.TimerSeconds,
	}
	if tmpl.CorrectAnswer != "" {
		answer := tmpl.CorrectAnswer
		task.CorrectAnswer = &answer
	}
	if mode == protocol.TaskVote {
		task.Options = append([]string(nil), players...)
	}
	return task, nil
}

// RulesJudge decides rounds without a model. Votes count once per voter, the
// voter's last submission winning; fastest-finger goes to the first exact
// answer; lie-detector rewards the most elaborate lie. Drawings cannot be
// judged by rules.
type RulesJudge struct{}

func (RulesJudge) Judge(_ context.Context, task protocol.Task, submissions []room.Submission) (protocol.WinnerInfo, error) {
	switch task.Type {
	case protocol.TaskVote:
		return tallyVotes(submissions)
	case protocol.TaskFastestFinger:
		return fastestCorrect(task, submissions)
	case protocol.TaskLieDetector:
		return longestLie(submissions)
	default:
		return protocol.WinnerInfo{}, fmt.Errorf("%w: %s rounds need a model", ErrNoVerdict, task.Type)
	}
}

// LatestPerPlayer keeps each player's final submission, ordered by when that
// final submission arrived.
func LatestPerPlayer(submissions []room.Submission) []room.Submission {
	last := make(map[string]int, len(submissions))
	for i, sub := range submissions {
		last[submitterKey(sub)] = i
	}
	out := make([]room.Submission, 0, len(last))
	for i, sub := range submissions {
		if last[submitterKey(sub)] == i {
			out = append(out, sub)
		}
	}
	return out
}

func submitterKey(sub room.Submission) string {
	if sub.PlayerID != "" {
		return sub.PlayerID
	}
	return sub.PlayerName
}

func tallyVotes(submissions []room.Submission) (protocol.WinnerInfo, error) {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, sub := range LatestPerPlayer(submissions) {
		choice := strings.TrimSpace(sub.Text)
		if choice == "" {
			continue
		}
		counts[choice]++
		if _, ok := firstSeen[choice]; !ok {
			firstSeen[choice] = i
		}
	}
	if len(counts) == 0 {
		return protocol.WinnerInfo{}, fmt.Errorf("%w: nobody voted", ErrNoVerdict)
	}
	candidates := make([]string, 0, len(counts))
	for name := range counts {
		candidates = append(candidates, name)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return firstSeen[a] < firstSeen[b]
	})
	winner := candidates[0]
	reason := fmt.Sprintf("%d vote(s). The people have spoken and they are worried.", counts[winner])
	if len(candidates) > 1 && counts[candidates[1]] == counts[winner] {
		reason = fmt.Sprintf("A tie at %d vote(s), broken by whoever the room suspected first.", counts[winner])
	}
	return protocol.WinnerInfo{Winner: winner, Reason: reason}, nil
}

func fastestCorrect(task protocol.Task, submissions []room.Submission) (protocol.WinnerInfo, error) {
	if task.CorrectAnswer == nil {
		return protocol.WinnerInfo{}, fmt.Errorf("%w: task has no answer", ErrNoVerdict)
	}
	want := normalizeAnswer(*task.CorrectAnswer)
	for _, sub := range submissions {
		if normalizeAnswer(sub.Text) == want {
			return protocol.WinnerInfo{
				Winner:   sub.PlayerName,
				WinnerID: sub.PlayerID,
				Reason:   "Fastest fingers in the room. Suspiciously fast.",
			}, nil
		}
	}
	return protocol.WinnerInfo{}, fmt.Errorf("%w: nobody answered correctly", ErrNoVerdict)
}

func longestLie(submissions []room.Submission) (protocol.WinnerInfo, error) {
	latest := LatestPerPlayer(submissions)
	best := -1
	bestLen := 0
	for i, sub := range latest {
		if n := len(strings.TrimSpace(sub.Text)); n > bestLen {
			best, bestLen = i, n
		}
	}
	if best < 0 {
		return protocol.WinnerInfo{}, fmt.Errorf("%w: nobody lied", ErrNoVerdict)
	}
	winner := latest[best]
	return protocol.WinnerInfo{
		Winner:   winner.PlayerName,
		WinnerID: winner.PlayerID,
		Reason:   "The most elaborate lie. Nobody should trust this person.",
	}, nil
}

func normalizeAnswer(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
