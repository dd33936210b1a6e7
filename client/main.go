package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"

	"github.com/majeanson/anthropicJoffre-sub005/config"
	"github.com/majeanson/anthropicJoffre-sub005/gameModel"
	"github.com/majeanson/anthropicJoffre-sub005/logging"
	"github.com/majeanson/anthropicJoffre-sub005/session"
	"github.com/majeanson/anthropicJoffre-sub005/transport"
)

var (
	serverFlag = flag.String("server", "", "server base URL, ws:// or wss:// (overrides JAFFRE_SERVER_URL)")
	gameFlag   = flag.String("game", "", "game id to join; a new game is created when empty")
)

func makeRequest(method, url string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func createNewGame(apiURL string) (string, error) {
	respBody, err := makeRequest("POST", apiURL+"/api/game/new", nil)
	if err != nil {
		return "", err
	}

	var response gameModel.NewGameResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", err
	}
	if !response.Success {
		return "", fmt.Errorf("failed to create game: %s", response.Message)
	}
	return response.GameState.ID, nil
}

// httpBase maps a ws:// server URL to the matching http:// one.
func httpBase(serverURL string) string {
	switch {
	case strings.HasPrefix(serverURL, "wss://"):
		return "https://" + strings.TrimPrefix(serverURL, "wss://")
	case strings.HasPrefix(serverURL, "ws://"):
		return "http://" + strings.TrimPrefix(serverURL, "ws://")
	}
	return serverURL
}

func cardColorCode(c gameModel.CardColor) string {
	switch c {
	case gameModel.Red:
		return "\033[1;31m"
	case gameModel.Brown:
		return "\033[0;33m"
	case gameModel.Green:
		return "\033[1;32m"
	case gameModel.Blue:
		return "\033[1;34m"
	}
	return ""
}

func printCards(cards []gameModel.Card) {
	for _, c := range cards {
		fmt.Printf("%s%d\033[0m ", cardColorCode(c.Color), c.Value)
	}
	fmt.Println()
}

func printState(s gameModel.GameState) {
	trump := "none"
	if s.Trump != nil {
		trump = string(*s.Trump)
	}
	fmt.Printf("\nRound %d  phase=%s  trump=%s  score %d:%d\n",
		s.RoundNumber, s.Phase, trump, s.TeamScores.Team1, s.TeamScores.Team2)
	for i, p := range s.Players {
		marker := " "
		if i == s.CurrentPlayerIndex {
			marker = ">"
		}
		name := p.Name
		if p.IsEmpty {
			name = "(empty)"
		}
		fmt.Printf("%s [team %d] %-12s tricks=%d points=%d  ", marker, p.TeamID, name, p.TricksWon, p.PointsWon)
		printCards(p.Hand)
	}
	if len(s.CurrentTrick) > 0 {
		fmt.Print("  trick: ")
		cards := make([]gameModel.Card, 0, len(s.CurrentTrick))
		for _, tc := range s.CurrentTrick {
			cards = append(cards, tc.Card)
		}
		printCards(cards)
	}
}

func main() {
	flag.Parse()

	cfg, err := config.ParseClient()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *serverFlag != "" {
		cfg.ServerURL = *serverFlag
	}
	if *gameFlag != "" {
		cfg.GameID = *gameFlag
	}

	logger, err := logging.New(cfg.Level, cfg.Development)
	if err != nil {
		fmt.Printf("Error building logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	fmt.Println("Welcome to the Jaffre CLI Client!")

	if cfg.GameID == "" {
		cfg.GameID, err = createNewGame(httpBase(cfg.ServerURL))
		if err != nil {
			fmt.Printf("Error creating game: %v\n", err)
			fmt.Printf("Make sure the server is running at %s\n", httpBase(cfg.ServerURL))
			return
		}
		fmt.Printf("Created game %s\n", cfg.GameID)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	mirror := session.New(logger, session.WithOnChange(printState))

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	conn, err := transport.Dial(dialCtx, cfg.ServerURL+"/ws/"+cfg.GameID, mirror, logger)
	cancel()
	if err != nil {
		fmt.Printf("Error joining game: %v\n", err)
		return
	}
	defer conn.Close()

	if err := conn.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("connection lost", zap.Error(err))
	}
	stats := mirror.Stats()
	fmt.Printf("\nLeft game %s after %d snapshots and %d deltas\n", cfg.GameID, stats.Snapshots, stats.Deltas)
}
