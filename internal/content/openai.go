package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"chaos-room/internal/canvas"
	"chaos-room/internal/protocol"
	"chaos-room/internal/room"
)

const defaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"

type OpenAIConfig struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
}

// OpenAI implements both TaskGenerator and Judge on the chat completions API.
type OpenAI struct {
	cfg    OpenAIConfig
	client *http.Client
	// PickMode chooses the target mode for generated tasks.
	PickMode func() protocol.TaskType
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultOpenAIEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OpenAI{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		PickMode: func() protocol.TaskType {
			return protocol.TaskTypes[rand.IntN(len(protocol.TaskTypes))]
		},
	}
}

type openAIChatRequest struct {
	Model          string              `json:"model"`
	Messages       []openAIChatMessage `json:"messages"`
	Temperature    float64             `json:"temperature,omitempty"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	ResponseFormat *openAIFormat       `json:"response_format,omitempty"`
}

type openAIFormat struct {
	Type string `json:"type"`
}

// openAIChatMessage content is either a string or a list of content parts.
type openAIChatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

var modeGuidance = map[protocol.TaskType]string{
	protocol.TaskDrawing:       `A weird, specific drawing prompt, e.g. "A duck wearing a tuxedo at a disco".`,
	protocol.TaskFastestFinger: `A hard phrase to type or a math problem. Include "correctAnswer".`,
	protocol.TaskLieDetector:   `Ask players for a convincing lie about a specific weird topic.`,
	protocol.TaskVote:          `A spicy or funny "Most likely to..." or "Who among you..." question.`,
}

const taskSystemPrompt = `You write tasks for a chaotic party game. Reply with a single JSON object with keys ` +
	`"id", "type", "title", "description", "timer" (seconds), and optionally "correctAnswer" and "options".`

const judgeSystemPrompt = `You judge a chaotic party game. Reply with a single JSON object with keys ` +
	`"winner" (a player name) and "reason" (a funny one-sentence justification).`

func (o *OpenAI) GenerateTask(ctx context.Context, round int, players []string) (protocol.Task, error) {
	mode := o.PickMode()
	user := fmt.Sprintf("Round: %d.\nPlayers: %s.\nTarget mode: %s.\n%s",
		round, strings.Join(players, ", "), mode, modeGuidance[mode])
	raw, err := o.complete(ctx, []openAIChatMessage{
		{Role: "system", Content: taskSystemPrompt},
		{Role: "user", Content: user},
	})
	if err != nil {
		return protocol.Task{}, err
	}
	var task protocol.Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return protocol.Task{}, fmt.Errorf("failed to parse generated task: %w", err)
	}
	if task.Type == "" {
		task.Type = mode
	}
	return task, nil
}

func (o *OpenAI) Judge(ctx context.Context, task protocol.Task, submissions []room.Submission) (protocol.WinnerInfo, error) {
	parts := []openAIContentPart{
		{Type: "text", Text: fmt.Sprintf("Game task: %q (mode: %s).", task.Description, task.Type)},
	}
	switch task.Type {
	case protocol.TaskDrawing:
		for _, sub := range submissions {
			if len(sub.Drawing) == 0 {
				continue
			}
			parts = append(parts,
				openAIContentPart{Type: "image_url", ImageURL: &openAIImageURL{URL: canvas.EncodeDataURL(sub.Drawing)}},
				openAIContentPart{Type: "text", Text: "Above is the collaborative drawing. Judge the collective effort or pick one player who stood out."},
			)
			break
		}
	case protocol.TaskVote:
		latest := LatestPerPlayer(submissions)
		votes := make([]map[string]string, 0, len(latest))
		for _, sub := range latest {
			votes = append(votes, map[string]string{"voter": sub.PlayerName, "votedFor": sub.Text})
		}
		encoded, _ := json.Marshal(votes)
		parts = append(parts,
			openAIContentPart{Type: "text", Text: "Votes received: " + string(encoded)},
			openAIContentPart{Type: "text", Text: "Count the votes and pick who got the most. On a tie pick one and explain why in a funny way."},
		)
	default:
		latest := LatestPerPlayer(submissions)
		answers := make([]map[string]string, 0, len(latest))
		for _, sub := range latest {
			answers = append(answers, map[string]string{"player": sub.PlayerName, "text": sub.Text})
		}
		encoded, _ := json.Marshal(answers)
		parts = append(parts, openAIContentPart{Type: "text", Text: "Submissions: " + string(encoded)})
	}

	raw, err := o.complete(ctx, []openAIChatMessage{
		{Role: "system", Content: judgeSystemPrompt},
		{Role: "user", Content: parts},
	})
	if err != nil {
		return protocol.WinnerInfo{}, err
	}
	var verdict protocol.WinnerInfo
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return protocol.WinnerInfo{}, fmt.Errorf("failed to parse verdict: %w", err)
	}
	verdict.Winner = strings.TrimSpace(verdict.Winner)
	verdict.WinnerID = ""
	return verdict, nil
}

func (o *OpenAI) complete(ctx context.Context, messages []openAIChatMessage) (string, error) {
	if strings.TrimSpace(o.cfg.APIKey) == "" {
		return "", errors.New("OpenAI API key is not configured")
	}
	payload, err := json.Marshal(openAIChatRequest{
		Model:          o.cfg.Model,
		Messages:       messages,
		Temperature:    0.9,
		MaxTokens:      400,
		ResponseFormat: &openAIFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to build OpenAI request")
	}

	reqCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, o.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build OpenAI request")
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(o.cfg.APIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach OpenAI: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read OpenAI response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("OpenAI request failed (%d)", resp.StatusCode)
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse OpenAI response")
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", fmt.Errorf("OpenAI error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("OpenAI returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
