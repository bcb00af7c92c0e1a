package event

// Kind names a discrete thing that happened inside a session.
type Kind string

const (
	KindPhaseCalm   Kind = "PHASE_CALM"
	KindPhaseHazard Kind = "PHASE_HAZARD"

	KindCloudLaunch Kind = "CLOUD_LAUNCH"
	KindCloudArrive Kind = "CLOUD_ARRIVE"
	KindCloudRetire Kind = "CLOUD_RETIRE"

	KindStrikeWarn    Kind = "STRIKE_WARN"
	KindStrikeHit     Kind = "STRIKE_HIT"
	KindStrikeRelease Kind = "STRIKE_RELEASE"

	KindThreatSpawn Kind = "THREAT_SPAWN"
	KindThreatExit  Kind = "THREAT_EXIT"

	KindItemSpawn  Kind = "ITEM_SPAWN"
	KindItemExpire Kind = "ITEM_EXPIRE"
	KindItemPickup Kind = "ITEM_PICKUP"

	KindDamage  Kind = "DAMAGE"
	KindHeal    Kind = "HEAL"
	KindLevelUp Kind = "LEVEL_UP"
	KindOffer   Kind = "OFFER"
	KindCommit  Kind = "COMMIT"
	KindGrant   Kind = "GRANT"
	KindDefeat  Kind = "DEFEAT"

	// Presentation cues; the core never waits on them.
	KindOrnamentMove Kind = "ORNAMENT_MOVE"
	KindLightFade    Kind = "LIGHT_FADE"
	KindRain         Kind = "RAIN"

	// KindSummary closes a session log. The core never emits it.
	KindSummary Kind = "SUMMARY"
)

// Event is one record of the session stream. Fields that do not apply are left zero;
// Duration is only set on presentation cues that animate over time.
type Event struct {
	Time     float64 `json:"t"`
	Kind     Kind    `json:"kind"`
	Entity   int     `json:"entity,omitempty"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
	Value    float64 `json:"value,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Detail   string  `json:"detail,omitempty"`
}

type Sink interface {
	Emit(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops everything.
var Discard Sink = SinkFunc(func(Event) {})

// Multi fans out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	var out []Sink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return SinkFunc(func(e Event) {
		for _, s := range out {
			s.Emit(e)
		}
	})
}

// Clock stamps events with the owner's current session time.
type Clock struct {
	Sink Sink
	Now  func() float64
}

func (c Clock) Emit(e Event) {
	if c.Sink == nil {
		return
	}
	if c.Now != nil {
		e.Time = c.Now()
	}
	c.Sink.Emit(e)
}

// Recorder keeps events in memory. Tests use it; the session uses it to batch a tick.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(e Event) { r.Events = append(r.Events, e) }

func (r *Recorder) Count(k Kind) int {
	n := 0
	for _, e := range r.Events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

func (r *Recorder) Of(k Kind) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

func (r *Recorder) Reset() { r.Events = r.Events[:0] }
