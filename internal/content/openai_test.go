package content

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chaos-room/internal/protocol"
	"chaos-room/internal/room"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeOpenAI(t *testing.T, status int, content string, seen *map[string]any) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if seen != nil {
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": content}}},
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestOpenAI(endpoint string) *OpenAI {
	client := NewOpenAI(OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini", Endpoint: endpoint})
	client.PickMode = func() protocol.TaskType { return protocol.TaskFastestFinger }
	return client
}

func TestOpenAIGenerateTask(t *testing.T) {
	var seen map[string]any
	ts := fakeOpenAI(t, http.StatusOK, `{"id":"g1","type":"FASTEST_FINGER","title":"MATHS","description":"7*6?","timer":20,"correctAnswer":"42"}`, &seen)

	task, err := newTestOpenAI(ts.URL).GenerateTask(context.Background(), 3, []string{"Ada", "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "g1", task.ID)
	assert.Equal(t, protocol.TaskFastestFinger, task.Type)
	require.NotNil(t, task.CorrectAnswer)
	assert.Equal(t, "42", *task.CorrectAnswer)

	assert.Equal(t, "gpt-4o-mini", seen["model"])
	messages := seen["messages"].([]any)
	user := messages[1].(map[string]any)["content"].(string)
	assert.Contains(t, user, "Round: 3.")
	assert.Contains(t, user, "Ada, Bob")
	assert.Contains(t, user, "FASTEST_FINGER")
}

func TestOpenAIFailuresUseFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
	}{
		{name: "server error", status: http.StatusInternalServerError, content: "{}"},
		{name: "not json", status: http.StatusOK, content: "here is your task!"},
		{name: "invalid task", status: http.StatusOK, content: `{"id":"x","type":"VOTE","description":"","timer":-1}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := fakeOpenAI(t, tc.status, tc.content, nil)
			client := newTestOpenAI(ts.URL)
			assert.Equal(t, FallbackTask(), SafeGenerator{Inner: client}.Generate(context.Background(), 1, nil))
			assert.Equal(t, FallbackVerdict(), SafeJudge{Inner: client}.Decide(context.Background(), FallbackTask(), nil))
		})
	}

	noKey := NewOpenAI(OpenAIConfig{})
	_, err := noKey.GenerateTask(context.Background(), 1, nil)
	assert.Error(t, err)
}

func TestOpenAIJudgeSendsDrawing(t *testing.T) {
	var seen map[string]any
	ts := fakeOpenAI(t, http.StatusOK, `{"winner":" Ada ","reason":"bold lines","winner_id":"forged"}`, &seen)

	task := protocol.Task{ID: "d", Type: protocol.TaskDrawing, Description: "A duck", TimerSeconds: 60}
	subs := []room.Submission{{PlayerName: CollaborativeName, Drawing: []byte{0x89, 'P', 'N', 'G'}}}
	verdict, err := newTestOpenAI(ts.URL).Judge(context.Background(), task, subs)
	require.NoError(t, err)
	assert.Equal(t, protocol.WinnerInfo{Winner: "Ada", Reason: "bold lines"}, verdict)

	raw, _ := json.Marshal(seen["messages"])
	assert.True(t, strings.Contains(string(raw), "data:image/png;base64,"), "drawing is attached as an image part")
}

func TestOpenAIJudgeSendsVotes(t *testing.T) {
	var seen map[string]any
	ts := fakeOpenAI(t, http.StatusOK, `{"winner":"Bob","reason":"everyone agreed"}`, &seen)

	_, err := newTestOpenAI(ts.URL).Judge(context.Background(), FallbackTask(), votes("Ada", "Cy", "Cy", "Bob", "Ada", "Bob"))
	require.NoError(t, err)

	var sent []map[string]string
	require.NoError(t, json.Unmarshal([]byte(userText(t, seen, "Votes received: ")), &sent))
	assert.Equal(t, []map[string]string{
		{"voter": "Cy", "votedFor": "Bob"},
		{"voter": "Ada", "votedFor": "Bob"},
	}, sent, "only each player's last vote is sent")
}

func TestOpenAIJudgeSendsLatestAnswers(t *testing.T) {
	var seen map[string]any
	ts := fakeOpenAI(t, http.StatusOK, `{"winner":"Ada","reason":"most convincing"}`, &seen)

	task := protocol.Task{ID: "t", Type: protocol.TaskLieDetector, Description: "Lie to us", TimerSeconds: 30}
	_, err := newTestOpenAI(ts.URL).Judge(context.Background(), task, votes("Ada", "first draft", "Bob", "pigeons", "Ada", "final story"))
	require.NoError(t, err)

	var sent []map[string]string
	require.NoError(t, json.Unmarshal([]byte(userText(t, seen, "Submissions: ")), &sent))
	assert.Equal(t, []map[string]string{
		{"player": "Bob", "text": "pigeons"},
		{"player": "Ada", "text": "final story"},
	}, sent)
}

// userText returns the user message text part that starts with prefix, with
// the prefix removed.
func userText(t *testing.T, request map[string]any, prefix string) string {
	t.Helper()
	messages, _ := request["messages"].([]any)
	for _, message := range messages {
		parts, _ := message.(map[string]any)["content"].([]any)
		for _, part := range parts {
			text, _ := part.(map[string]any)["text"].(string)
			if strings.HasPrefix(text, prefix) {
				return strings.TrimPrefix(text, prefix)
			}
		}
	}
	t.Fatalf("no %q part in request", prefix)
	return ""
}
