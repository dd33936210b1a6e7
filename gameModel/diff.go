package gameModel

import "reflect"

// Diff builds the smallest delta that turns prev into next. It returns
// false when the change cannot be expressed as a delta: a different game,
// a resized players array, or an append-only sequence that was rewritten
// instead of extended. The caller must send a full snapshot then.
//
// nil and empty append-only sequences are treated as equal.
func Diff(prev, next GameState, timestamp int64) (Delta, bool) {
	if prev.ID != next.ID || len(prev.Players) != len(next.Players) {
		return Delta{}, false
	}
	d := NewDelta(next.ID, timestamp)

	if prev.Phase != next.Phase {
		d.Phase = Set(next.Phase)
	}
	if prev.CurrentPlayerIndex != next.CurrentPlayerIndex {
		d.CurrentPlayerIndex = Set(next.CurrentPlayerIndex)
	}
	if prev.DealerIndex != next.DealerIndex {
		d.DealerIndex = Set(next.DealerIndex)
	}
	if !reflect.DeepEqual(prev.Trump, next.Trump) {
		d.Trump = Set(next.Trump)
	}
	if prev.RoundNumber != next.RoundNumber {
		d.RoundNumber = Set(next.RoundNumber)
	}
	if !reflect.DeepEqual(prev.RoundEndTimestamp, next.RoundEndTimestamp) {
		d.RoundEndTimestamp = Set(next.RoundEndTimestamp)
	}

	if prev.TeamScores != next.TeamScores {
		d.TeamScores = Replace(next.TeamScores)
	}
	if !reflect.DeepEqual(prev.HighestBet, next.HighestBet) {
		d.HighestBet = Replace(next.HighestBet)
	}
	if !reflect.DeepEqual(prev.PreviousTrick, next.PreviousTrick) {
		d.PreviousTrick = Replace(next.PreviousTrick)
	}

	if !reflect.DeepEqual(prev.CurrentTrick, next.CurrentTrick) {
		d.CurrentTrick = ReplaceAll(next.CurrentTrick)
	}
	if !reflect.DeepEqual(prev.CurrentBets, next.CurrentBets) {
		d.CurrentBets = ReplaceAll(next.CurrentBets)
	}
	if !reflect.DeepEqual(prev.PlayersReady, next.PlayersReady) {
		d.PlayersReady = ReplaceAll(next.PlayersReady)
	}
	if !reflect.DeepEqual(prev.RematchVotes, next.RematchVotes) {
		d.RematchVotes = ReplaceAll(next.RematchVotes)
	}

	for i := range next.Players {
		if changes, changed := diffPlayer(prev.Players[i], next.Players[i]); changed {
			d.PlayerUpdates = append(d.PlayerUpdates, PlayerUpdate{Index: i, Changes: changes})
		}
	}

	history, ok := appendedSuffix(prev.RoundHistory, next.RoundHistory)
	if !ok {
		return Delta{}, false
	}
	d.NewRoundHistory = history

	tricks, ok := appendedSuffix(prev.CurrentRoundTricks, next.CurrentRoundTricks)
	if !ok {
		return Delta{}, false
	}
	d.NewCurrentRoundTricks = tricks

	return d, true
}

func diffPlayer(a, b Player) (PlayerChanges, bool) {
	var c PlayerChanges
	changed := false
	if a.ID != b.ID {
		c.ID, changed = Set(b.ID), true
	}
	if a.Name != b.Name {
		c.Name, changed = Set(b.Name), true
	}
	if a.TeamID != b.TeamID {
		c.TeamID, changed = Set(b.TeamID), true
	}
	if !reflect.DeepEqual(a.Hand, b.Hand) {
		c.Hand, changed = ReplaceAll(b.Hand), true
	}
	if a.TricksWon != b.TricksWon {
		c.TricksWon, changed = Set(b.TricksWon), true
	}
	if a.PointsWon != b.PointsWon {
		c.PointsWon, changed = Set(b.PointsWon), true
	}
	if a.IsBot != b.IsBot {
		c.IsBot, changed = Set(b.IsBot), true
	}
	if a.BotDifficulty != b.BotDifficulty {
		c.BotDifficulty, changed = Set(b.BotDifficulty), true
	}
	if a.IsEmpty != b.IsEmpty {
		c.IsEmpty, changed = Set(b.IsEmpty), true
	}
	if a.EmptySlotName != b.EmptySlotName {
		c.EmptySlotName, changed = Set(b.EmptySlotName), true
	}
	if a.ConnectionStatus != b.ConnectionStatus {
		c.ConnectionStatus, changed = Set(b.ConnectionStatus), true
	}
	return c, changed
}

// appendedSuffix returns the entries next adds after prev, or false when
// prev is not a prefix of next.
func appendedSuffix[T any](prev, next []T) (Appended[T], bool) {
	if len(next) < len(prev) {
		return nil, false
	}
	if !reflect.DeepEqual(normalize(prev), normalize(next[:len(prev)])) {
		return nil, false
	}
	if len(next) == len(prev) {
		return nil, true
	}
	return Appended[T](cloneSlice(next[len(prev):])), true
}

func normalize[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}
