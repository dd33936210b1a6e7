package gameModel

import "fmt"

type GamePhase string

const (
	PhaseTeamSelection GamePhase = "team_selection"
	PhaseBetting       GamePhase = "betting"
	PhasePlaying       GamePhase = "playing"
	PhaseScoring       GamePhase = "scoring"
	PhaseGameOver      GamePhase = "game_over"
)

// Known reports whether p is one of the closed set of game phases.
func (p GamePhase) Known() bool {
	switch p {
	case PhaseTeamSelection, PhaseBetting, PhasePlaying, PhaseScoring, PhaseGameOver:
		return true
	}
	return false
}

type CardColor string

const (
	Red   CardColor = "red"
	Brown CardColor = "brown"
	Green CardColor = "green"
	Blue  CardColor = "blue"
)

type Card struct {
	Color CardColor `json:"color"`
	Value int       `json:"value"`
}

func (c Card) String() string {
	return fmt.Sprintf("%s %d", c.Color, c.Value)
}

type Player struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	TeamID           int    `json:"teamId"`
	Hand             []Card `json:"hand"`
	TricksWon        int    `json:"tricksWon"`
	PointsWon        int    `json:"pointsWon"`
	IsBot            bool   `json:"isBot,omitempty"`
	BotDifficulty    string `json:"botDifficulty,omitempty"`
	IsEmpty          bool   `json:"isEmpty,omitempty"`
	EmptySlotName    string `json:"emptySlotName,omitempty"`
	ConnectionStatus string `json:"connectionStatus,omitempty"`
}

type Bet struct {
	PlayerID     string `json:"playerId"`
	PlayerName   string `json:"playerName,omitempty"`
	Amount       int    `json:"amount"`
	WithoutTrump bool   `json:"withoutTrump"`
	Skipped      bool   `json:"skipped,omitempty"`
}

type TrickCard struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName,omitempty"`
	Card       Card   `json:"card"`
}

type TrickResult struct {
	Trick      []TrickCard `json:"trick"`
	WinnerID   string      `json:"winnerId"`
	WinnerName string      `json:"winnerName,omitempty"`
	Points     int         `json:"points"`
}

type TeamScores struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

type RoundHistory struct {
	RoundNumber     int        `json:"roundNumber"`
	Bets            []Bet      `json:"bets"`
	HighestBet      Bet        `json:"highestBet"`
	OffensiveTeam   int        `json:"offensiveTeam"`
	OffensivePoints int        `json:"offensivePoints"`
	DefensivePoints int        `json:"defensivePoints"`
	BetAmount       int        `json:"betAmount"`
	WithoutTrump    bool       `json:"withoutTrump"`
	BetMade         bool       `json:"betMade"`
	RoundScore      TeamScores `json:"roundScore"`
	CumulativeScore TeamScores `json:"cumulativeScore"`
	Trump           *CardColor `json:"trump"`
}

// GameState is the client's mirror of the server-held game. Players are
// index-stable: partial updates address a player by its position.
type GameState struct {
	ID                 string         `json:"id"`
	Phase              GamePhase      `json:"phase"`
	CurrentPlayerIndex int            `json:"currentPlayerIndex"`
	DealerIndex        int            `json:"dealerIndex"`
	Trump              *CardColor     `json:"trump"`
	RoundNumber        int            `json:"roundNumber"`
	RoundEndTimestamp  *int64         `json:"roundEndTimestamp,omitempty"`
	TeamScores         TeamScores     `json:"teamScores"`
	HighestBet         *Bet           `json:"highestBet"`
	PreviousTrick      *TrickResult   `json:"previousTrick"`
	CurrentTrick       []TrickCard    `json:"currentTrick"`
	CurrentBets        []Bet          `json:"currentBets"`
	PlayersReady       []string       `json:"playersReady"`
	RematchVotes       []string       `json:"rematchVotes"`
	Players            []Player       `json:"players"`
	RoundHistory       []RoundHistory `json:"roundHistory"`
	CurrentRoundTricks []TrickResult  `json:"currentRoundTricks"`
}

// Validate checks the structural invariants a snapshot must hold. It does
// not know the game rules; it only catches shapes no server should emit.
func (s GameState) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("game state: missing id")
	}
	if !s.Phase.Known() {
		return fmt.Errorf("game state %s: unknown phase %q", s.ID, s.Phase)
	}
	if n := len(s.Players); n > 0 {
		if s.CurrentPlayerIndex < 0 || s.CurrentPlayerIndex >= n {
			return fmt.Errorf("game state %s: currentPlayerIndex %d out of range [0,%d)", s.ID, s.CurrentPlayerIndex, n)
		}
		if s.DealerIndex < 0 || s.DealerIndex >= n {
			return fmt.Errorf("game state %s: dealerIndex %d out of range [0,%d)", s.ID, s.DealerIndex, n)
		}
	}
	if len(s.CurrentTrick) > len(s.Players) {
		return fmt.Errorf("game state %s: %d cards in trick for %d players", s.ID, len(s.CurrentTrick), len(s.Players))
	}
	return nil
}

// PlayerIndex returns the position of the player with the given id, or -1.
func (s GameState) PlayerIndex(playerID string) int {
	for i, p := range s.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func ColorPtr(c CardColor) *CardColor { return &c }
