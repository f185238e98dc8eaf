package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chaos-room/internal/config"
	"chaos-room/internal/content"
	"chaos-room/internal/game"
	"chaos-room/internal/logger"
	"chaos-room/internal/protocol"
	"chaos-room/internal/transport"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const roundGap = 3 * time.Second

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "relay base url")
	code := flag.String("room", "", "room code to join; opens a new room when empty and -host is set")
	name := flag.String("name", "", "display name")
	host := flag.Bool("host", false, "act as the room host")
	rounds := flag.Int("rounds", 0, "rounds to play when hosting; defaults to MAX_ROUNDS")
	wait := flag.Int("wait", 2, "players to wait for before the host starts")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *rounds <= 0 {
		*rounds = cfg.MaxRounds
	}
	if *code == "" {
		if !*host {
			log.Fatal().Msg("-room is required unless -host is set")
		}
		created, err := createRoom(ctx, *serverURL, *rounds)
		if err != nil {
			log.Fatal().Err(err).Msg("open room")
		}
		*code = created
	}
	*code = strings.ToUpper(*code)
	if *name == "" {
		*name = "bot-" + uuid.NewString()[:4]
	}

	self := protocol.Player{ID: uuid.NewString(), Name: *name, IsHost: *host}
	wsURL, err := transport.ChannelURL(*serverURL, transport.DefaultChannel, self.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("relay url")
	}
	client, err := transport.Dial(ctx, wsURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect relay")
	}
	defer client.Shutdown()

	events := newEventQueue()
	gameCfg := game.Config{
		RoomCode:  *code,
		Self:      self,
		MaxRounds: *rounds,
		Transport: client,
		OnEvent:   events.push,
	}
	if *host {
		gameCfg.Generator, gameCfg.Judge = pickContent(cfg)
	}
	session, err := game.Open(ctx, gameCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open session")
	}
	defer session.Close()

	printf(infoColor, "room %s: joined as %s\n", *code, *name)
	if *host {
		printf(infoColor, "share %s/rooms/%s\n", strings.TrimRight(*serverURL, "/"), *code)
	}

	b := &bot{session: session, wait: *wait}
	if err := b.run(ctx, events, client.Done()); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("bot stopped")
	}
	leaveCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = session.Leave(leaveCtx, "bot exit")
}

func pickContent(cfg config.Config) (content.TaskGenerator, content.Judge) {
	if cfg.OpenAIAPIKey == "" {
		return content.StaticGenerator{}, content.RulesJudge{}
	}
	ai := content.NewOpenAI(content.OpenAIConfig{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel})
	return ai, ai
}

func createRoom(ctx context.Context, base string, rounds int) (string, error) {
	body := strings.NewReader(fmt.Sprintf(`{"max_rounds":%d}`, min(rounds, 20)))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/api/rooms", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	var out struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode room: %w", err)
	}
	if res.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create room: %s", out.Error)
	}
	return out.Code, nil
}
