package indexdb

import (
	"strings"

	"skyshade.ai/internal/sim/event"
)

// SessionSink feeds one session's events into the index and pairs each OFFER with the COMMIT
// that answers it. It is used from the session goroutine only.
type SessionSink struct {
	idx       *SQLiteIndex
	sessionID string

	open    bool
	pending OfferRecord
}

func (s *SQLiteIndex) Sink(sessionID string) *SessionSink {
	return &SessionSink{idx: s, sessionID: sessionID}
}

func (k *SessionSink) Emit(e event.Event) {
	if k == nil || k.idx == nil {
		return
	}
	k.idx.RecordEvent(k.sessionID, e)
	switch e.Kind {
	case event.KindOffer:
		k.open = true
		k.pending = OfferRecord{
			SessionID: k.sessionID,
			T:         e.Time,
			Level:     int(e.Value),
			Choices:   strings.Split(e.Detail, ","),
		}
	case event.KindCommit:
		if !k.open {
			return
		}
		k.pending.Chosen = e.Detail
		k.idx.RecordOffer(k.pending)
		k.open = false
		k.pending = OfferRecord{}
	}
}
