package gameModel

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// MergeRule names how a delta field is folded into the mirror.
type MergeRule int

const (
	RuleScalar MergeRule = iota + 1
	RuleWholeValue
	RuleWholeArray
	RuleIndexed
	RuleAppend
)

func (r MergeRule) String() string {
	switch r {
	case RuleScalar:
		return "scalar"
	case RuleWholeValue:
		return "whole-value"
	case RuleWholeArray:
		return "whole-array"
	case RuleIndexed:
		return "indexed"
	case RuleAppend:
		return "append"
	}
	return "unknown"
}

// optional records whether a JSON key was present. An explicit null is a
// present "none" only when T can hold one (pointer, slice, map, interface);
// for any other T a null is treated as if the key were absent.
type optional[T any] struct {
	present bool
	value   T
}

func (o optional[T]) Get() (T, bool) { return o.value, o.present }

func (o optional[T]) IsZero() bool { return !o.present }

func (o optional[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.value)
}

func (o *optional[T]) UnmarshalJSON(data []byte) error {
	var v T
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		if !nullable[T]() {
			return nil
		}
	} else if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.present = true
	o.value = v
	return nil
}

func nullable[T any]() bool {
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	}
	return false
}

// Scalar overwrites a scalar mirror field when present.
type Scalar[T any] struct{ optional[T] }

func (Scalar[T]) MergeRule() MergeRule { return RuleScalar }

// Whole replaces a small nested value in one piece. No field-level merge.
type Whole[T any] struct{ optional[T] }

func (Whole[T]) MergeRule() MergeRule { return RuleWholeValue }

// Array replaces a whole sequence. A present empty array clears it.
type Array[T any] struct{ optional[[]T] }

func (Array[T]) MergeRule() MergeRule { return RuleWholeArray }

// Appended extends an append-only sequence. Absent and empty are no-ops.
type Appended[T any] []T

func (Appended[T]) MergeRule() MergeRule { return RuleAppend }

func Set[T any](v T) Scalar[T]         { return Scalar[T]{optional[T]{present: true, value: v}} }
func Replace[T any](v T) Whole[T]      { return Whole[T]{optional[T]{present: true, value: v}} }
func ReplaceAll[T any](v []T) Array[T] { return Array[T]{optional[[]T]{present: true, value: v}} }

// PlayerChanges is a partial player record; only present fields are merged.
type PlayerChanges struct {
	ID               Scalar[string] `json:"id,omitzero"`
	Name             Scalar[string] `json:"name,omitzero"`
	TeamID           Scalar[int]    `json:"teamId,omitzero"`
	Hand             Array[Card]    `json:"hand,omitzero"`
	TricksWon        Scalar[int]    `json:"tricksWon,omitzero"`
	PointsWon        Scalar[int]    `json:"pointsWon,omitzero"`
	IsBot            Scalar[bool]   `json:"isBot,omitzero"`
	BotDifficulty    Scalar[string] `json:"botDifficulty,omitzero"`
	IsEmpty          Scalar[bool]   `json:"isEmpty,omitzero"`
	EmptySlotName    Scalar[string] `json:"emptySlotName,omitzero"`
	ConnectionStatus Scalar[string] `json:"connectionStatus,omitzero"`
}

func (c PlayerChanges) apply(p Player) Player {
	if v, ok := c.ID.Get(); ok {
		p.ID = v
	}
	if v, ok := c.Name.Get(); ok {
		p.Name = v
	}
	if v, ok := c.TeamID.Get(); ok {
		p.TeamID = v
	}
	if v, ok := c.Hand.Get(); ok {
		p.Hand = cloneSlice(v)
	}
	if v, ok := c.TricksWon.Get(); ok {
		p.TricksWon = v
	}
	if v, ok := c.PointsWon.Get(); ok {
		p.PointsWon = v
	}
	if v, ok := c.IsBot.Get(); ok {
		p.IsBot = v
	}
	if v, ok := c.BotDifficulty.Get(); ok {
		p.BotDifficulty = v
	}
	if v, ok := c.IsEmpty.Get(); ok {
		p.IsEmpty = v
	}
	if v, ok := c.EmptySlotName.Get(); ok {
		p.EmptySlotName = v
	}
	if v, ok := c.ConnectionStatus.Get(); ok {
		p.ConnectionStatus = v
	}
	return p
}

type PlayerUpdate struct {
	Index   int           `json:"index"`
	Changes PlayerChanges `json:"changes"`
}

// PlayerUpdates addresses players by array position.
type PlayerUpdates []PlayerUpdate

func (PlayerUpdates) MergeRule() MergeRule { return RuleIndexed }

// Delta is a sparse patch against the mirror of game ID. Every applied
// field carries its merge rule in its type; omission means no change.
type Delta struct {
	ID        string `json:"id"`
	IsDelta   bool   `json:"isDelta"`
	Timestamp int64  `json:"timestamp"`

	Phase              Scalar[GamePhase]  `json:"phase,omitzero"`
	CurrentPlayerIndex Scalar[int]        `json:"currentPlayerIndex,omitzero"`
	DealerIndex        Scalar[int]        `json:"dealerIndex,omitzero"`
	Trump              Scalar[*CardColor] `json:"trump,omitzero"`
	RoundNumber        Scalar[int]        `json:"roundNumber,omitzero"`
	RoundEndTimestamp  Scalar[*int64]     `json:"roundEndTimestamp,omitzero"`

	TeamScores    Whole[TeamScores]   `json:"teamScores,omitzero"`
	HighestBet    Whole[*Bet]         `json:"highestBet,omitzero"`
	PreviousTrick Whole[*TrickResult] `json:"previousTrick,omitzero"`

	CurrentTrick Array[TrickCard] `json:"currentTrick,omitzero"`
	CurrentBets  Array[Bet]       `json:"currentBets,omitzero"`
	PlayersReady Array[string]    `json:"playersReady,omitzero"`
	RematchVotes Array[string]    `json:"rematchVotes,omitzero"`

	PlayerUpdates PlayerUpdates `json:"playerUpdates,omitempty"`

	NewRoundHistory       Appended[RoundHistory] `json:"newRoundHistory,omitempty"`
	NewCurrentRoundTricks Appended[TrickResult]  `json:"newCurrentRoundTricks,omitempty"`
}

// NewDelta returns an empty delta for game id, marked as a delta.
func NewDelta(id string, timestamp int64) Delta {
	return Delta{ID: id, IsDelta: true, Timestamp: timestamp}
}
