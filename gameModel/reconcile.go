package gameModel

import "slices"

// Report describes what Reconcile did with a delta. It never changes the
// returned state; callers use it for diagnostics.
type Report struct {
	// Fields lists the JSON names of mirror fields the delta touched.
	Fields []string
	// SkippedPlayerIndices holds playerUpdates indices outside the players array.
	SkippedPlayerIndices []int
	Appended             struct{ RoundHistory, CurrentRoundTricks int }
}

// Empty reports whether the delta carried no applicable change.
func (r Report) Empty() bool {
	return len(r.Fields) == 0
}

// ApplyDelta folds delta into current and returns the next mirror. current
// and delta are not modified. Fields absent from delta are carried over
// verbatim.
//
// Appended fields are not idempotent: applying the same delta twice
// appends its history entries twice. Every other field is idempotent.
// ApplyDelta does not compare ids; the caller must only apply a delta to a
// mirror of the same game.
func ApplyDelta(current GameState, delta Delta) GameState {
	next, _ := Reconcile(current, delta)
	return next
}

// Reconcile is ApplyDelta with a report of the touched fields and of any
// player updates that were skipped because their index was out of range.
func Reconcile(current GameState, delta Delta) (GameState, Report) {
	var r Report
	next := current

	if v, ok := delta.Phase.Get(); ok {
		next.Phase = v
		r.touch("phase")
	}
	if v, ok := delta.CurrentPlayerIndex.Get(); ok {
		next.CurrentPlayerIndex = v
		r.touch("currentPlayerIndex")
	}
	if v, ok := delta.DealerIndex.Get(); ok {
		next.DealerIndex = v
		r.touch("dealerIndex")
	}
	if v, ok := delta.Trump.Get(); ok {
		next.Trump = clonePtr(v)
		r.touch("trump")
	}
	if v, ok := delta.RoundNumber.Get(); ok {
		next.RoundNumber = v
		r.touch("roundNumber")
	}
	if v, ok := delta.RoundEndTimestamp.Get(); ok {
		next.RoundEndTimestamp = clonePtr(v)
		r.touch("roundEndTimestamp")
	}

	if v, ok := delta.TeamScores.Get(); ok {
		next.TeamScores = v
		r.touch("teamScores")
	}
	if v, ok := delta.HighestBet.Get(); ok {
		next.HighestBet = clonePtr(v)
		r.touch("highestBet")
	}
	if v, ok := delta.PreviousTrick.Get(); ok {
		if v != nil {
			t := *v
			t.Trick = cloneSlice(v.Trick)
			v = &t
		}
		next.PreviousTrick = v
		r.touch("previousTrick")
	}

	if v, ok := delta.CurrentTrick.Get(); ok {
		next.CurrentTrick = cloneSlice(v)
		r.touch("currentTrick")
	}
	if v, ok := delta.CurrentBets.Get(); ok {
		next.CurrentBets = cloneSlice(v)
		r.touch("currentBets")
	}
	if v, ok := delta.PlayersReady.Get(); ok {
		next.PlayersReady = cloneSlice(v)
		r.touch("playersReady")
	}
	if v, ok := delta.RematchVotes.Get(); ok {
		next.RematchVotes = cloneSlice(v)
		r.touch("rematchVotes")
	}

	if len(delta.PlayerUpdates) > 0 {
		players := slices.Clone(current.Players)
		applied := false
		for _, u := range delta.PlayerUpdates {
			if u.Index < 0 || u.Index >= len(players) {
				r.SkippedPlayerIndices = append(r.SkippedPlayerIndices, u.Index)
				continue
			}
			players[u.Index] = u.Changes.apply(players[u.Index])
			applied = true
		}
		next.Players = players
		if applied {
			r.touch("players")
		}
	}

	if len(delta.NewRoundHistory) > 0 {
		next.RoundHistory = slices.Concat(current.RoundHistory, []RoundHistory(delta.NewRoundHistory))
		r.Appended.RoundHistory = len(delta.NewRoundHistory)
		r.touch("roundHistory")
	}
	if len(delta.NewCurrentRoundTricks) > 0 {
		next.CurrentRoundTricks = slices.Concat(current.CurrentRoundTricks, []TrickResult(delta.NewCurrentRoundTricks))
		r.Appended.CurrentRoundTricks = len(delta.NewCurrentRoundTricks)
		r.touch("currentRoundTricks")
	}

	return next, r
}

func (r *Report) touch(field string) {
	r.Fields = append(r.Fields, field)
}

// cloneSlice copies s so the mirror never shares backing arrays with a
// delta. nil stays nil and empty stays empty.
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
