package session

import "fmt"

const resyncReasonLimit = 8

// ResyncReason records why a delta could not be applied.
type ResyncReason struct {
	GameID string
	Cause  string
}

// ResyncSignal asks the transport to fetch a fresh full snapshot.
type ResyncSignal struct {
	GameID  string
	Ignored uint64
	Reasons []ResyncReason
}

func (s ResyncSignal) Summary() string {
	return fmt.Sprintf("game=%s ignored_deltas=%d reasons=%v", s.GameID, s.Ignored, s.Reasons)
}

// resyncPolicy goes pending on the first ignored delta and stays pending
// until consumed or until a full snapshot makes the request moot.
type resyncPolicy struct {
	pending bool
	gameID  string
	ignored uint64
	reasons []ResyncReason
}

func newResyncPolicy() *resyncPolicy {
	return &resyncPolicy{reasons: make([]ResyncReason, 0, resyncReasonLimit)}
}

func (p *resyncPolicy) noteIgnored(gameID, cause string) {
	p.ignored++
	p.pending = true
	if gameID != "" {
		p.gameID = gameID
	}
	if len(p.reasons) < resyncReasonLimit {
		p.reasons = append(p.reasons, ResyncReason{GameID: gameID, Cause: cause})
	}
}

func (p *resyncPolicy) reset() {
	p.pending = false
	p.gameID = ""
	p.ignored = 0
	p.reasons = p.reasons[:0]
}

func (p *resyncPolicy) consume() (ResyncSignal, bool) {
	if !p.pending {
		return ResyncSignal{}, false
	}
	signal := ResyncSignal{
		GameID:  p.gameID,
		Ignored: p.ignored,
		Reasons: append([]ResyncReason(nil), p.reasons...),
	}
	p.reset()
	return signal, true
}
