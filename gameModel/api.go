package gameModel

type NewGameResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	GameState GameState `json:"gameState"`
}

type PushStateResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	Event     Event      `json:"event,omitempty"`
	Delta     bool       `json:"delta"`
	GameState *GameState `json:"gameState,omitempty"`
}

// NewLobby returns a four-seat game in team selection with empty seats.
func NewLobby(id string) GameState {
	players := make([]Player, 4)
	for i := range players {
		players[i] = Player{TeamID: i%2 + 1, Hand: []Card{}, IsEmpty: true}
	}
	return GameState{
		ID:                 id,
		Phase:              PhaseTeamSelection,
		RoundNumber:        1,
		CurrentTrick:       []TrickCard{},
		CurrentBets:        []Bet{},
		PlayersReady:       []string{},
		RematchVotes:       []string{},
		Players:            players,
		RoundHistory:       []RoundHistory{},
		CurrentRoundTricks: []TrickResult{},
	}
}
