package session

import (
	"errors"
	"math"
	"strings"

	"github.com/google/uuid"

	"skyshade.ai/internal/protocol"
	"skyshade.ai/internal/sim/augments"
	"skyshade.ai/internal/sim/contact"
	"skyshade.ai/internal/sim/director"
	"skyshade.ai/internal/sim/encoding"
	"skyshade.ai/internal/sim/event"
	"skyshade.ai/internal/sim/player"
	"skyshade.ai/internal/sim/rng"
	"skyshade.ai/internal/sim/spawners"
	"skyshade.ai/internal/sim/tuning"
)

const (
	avatarRadius = 0.4

	companionOffset = -1.5
	companionSmooth = 0.15
)

var (
	ErrNoOffer   = errors.New("no pending offer")
	ErrBadChoice = errors.New("choice out of range")
	ErrOver      = errors.New("session is over")
)

type Deps struct {
	Catalog *augments.Catalog
	Source  rng.Source
	// Events receives every event after it is stamped with session time.
	Events event.Sink
	// ID defaults to a random uuid.
	ID            string
	CatalogDigest string
}

// Session is one run of the encounter. Step is its only clock; nothing in here is safe for
// concurrent use, the Runner owns it on a single goroutine.
type Session struct {
	id            string
	cfg           tuning.Tuning
	catalogDigest string
	tuningDigest  string

	tick    uint64
	elapsed float64

	sink    event.Sink
	pending event.Recorder

	player *player.State
	owned  *augments.OwnedSet
	engine *augments.Engine

	orch    *director.Orchestrator
	clouds  *spawners.Clouds
	strikes *spawners.Strikes
	threats *spawners.Threats
	items   *spawners.Items

	targetX   float64
	hasTarget bool

	companionX float64

	pendingLevels int
	offer         []*augments.Definition
	offerLevel    int
	offerSeq      int

	started  bool
	defeated bool
	stopped  bool
}

func New(cfg tuning.Tuning, deps Deps) *Session {
	cfg.Normalize()
	s := &Session{
		id:            deps.ID,
		cfg:           cfg,
		catalogDigest: deps.CatalogDigest,
		player:        player.New(cfg.Player),
		owned:         augments.NewOwnedSet(),
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	s.tuningDigest, _ = encoding.JSONDigest(cfg)
	src := deps.Source
	if src == nil {
		src = rng.NewSeeded(cfg.Seed)
	}
	cat := deps.Catalog
	if cat == nil {
		cat = augments.DefaultCatalog()
	}
	s.sink = event.Clock{
		Sink: event.Multi(&s.pending, deps.Events),
		Now:  func() float64 { return s.elapsed },
	}
	s.engine = augments.NewEngine(cat, src)

	s.clouds = spawners.NewClouds(cfg.Clouds, src, s.sink)
	s.strikes = spawners.NewStrikes(cfg.Strikes, src, s.sink)
	s.threats = spawners.NewThreats(cfg.Threats, s, src, s.sink)
	s.items = spawners.NewItems(cfg.Items, src, s.sink)

	s.orch = director.New(cfg.Director, director.Deps{
		Calm:       s.clouds,
		Hazard:     s.strikes,
		Threats:    s.threats,
		Hooks:      s.strikes,
		CloudSpeed: s.clouds,
		Shade:      s,
		Damage:     sunDamage{s},
		Events:     s.sink,
	}, director.ThunderBindings(cfg.ThunderCurves, s.strikes))

	s.companionX = s.player.X + companionOffset
	return s
}

// Start enters the first calm phase. Calling it twice is a no-op.
func (s *Session) Start() {
	if s.started {
		return
	}
	s.started = true
	s.orch.Start()
	s.items.Start()
}

// Stop halts every scheduler. The session can not be resumed.
func (s *Session) Stop() {
	if s.stopped {
		return
	}
	s.stopped = true
	s.orch.Stop()
	s.items.Stop()
}

// Step advances the session by dt seconds in a fixed order: orchestrator, clouds, strikes,
// threats, items, contacts, progression. It does nothing while an offer is pending.
func (s *Session) Step(dt float64) {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return
	}
	if !s.started || s.stopped || s.defeated || s.Paused() {
		return
	}
	s.pending.Reset()
	s.tick++
	s.elapsed += dt

	s.moveAvatar(dt)

	s.orch.Tick(dt)
	s.clouds.Tick(dt)
	s.strikes.Tick(dt)
	s.threats.Tick(dt)
	s.items.Tick(dt)

	s.resolveContacts()
	s.progress(dt)
}

// MoveTo sets the x the avatar walks toward. It is clamped to the play field.
func (s *Session) MoveTo(x float64) {
	if math.IsNaN(x) {
		return
	}
	lo, hi := s.cfg.Clouds.LeftX, s.cfg.Clouds.RightX
	s.targetX = math.Min(math.Max(x, lo), hi)
	s.hasTarget = true
}

func (s *Session) moveAvatar(dt float64) {
	if s.hasTarget {
		step := s.cfg.Player.MoveSpeed * s.player.SpeedMul * dt
		d := s.targetX - s.player.X
		if math.Abs(d) <= step {
			s.player.X = s.targetX
		} else {
			s.player.X += math.Copysign(step, d)
		}
	}
	if s.player.Companion {
		k := math.Min(1, dt/companionSmooth)
		s.companionX += (s.player.X + companionOffset - s.companionX) * k
	}
}

// ShadeSpans lists the cloud spans plus the companion span when there is one.
func (s *Session) ShadeSpans() []contact.Span {
	clouds := s.clouds.Snapshot()
	spans := make([]contact.Span, 0, len(clouds)+1)
	for _, c := range clouds {
		spans = append(spans, contact.Span{ID: c.Slot, Center: c.X, Half: s.clouds.HalfWidth()})
	}
	if s.player.Companion {
		spans = append(spans, contact.Span{ID: -1, Center: s.companionX, Half: s.clouds.HalfWidth()})
	}
	return spans
}

// ShadeCount is the number of shade volumes over the avatar.
func (s *Session) ShadeCount() int {
	return contact.ShadeCount(s.player.X, s.ShadeSpans())
}

// PhaseIndex and Raining gate the flying threats.
func (s *Session) PhaseIndex() int { return s.orch.PhaseIndex() }
func (s *Session) Raining() bool   { return s.orch.Raining() }

type sunDamage struct{ s *Session }

func (d sunDamage) ApplyDamage(amount float64) {
	d.s.damage(player.SourceSun, amount, 0)
}

func (s *Session) damage(src player.Source, amount float64, entity int) {
	taken := s.player.ApplyDamage(src, amount)
	if taken <= 0 {
		return
	}
	s.sink.Emit(event.Event{
		Kind:   event.KindDamage,
		Entity: entity,
		X:      s.player.X,
		Value:  float64(taken),
		Detail: string(src),
	})
}

func (s *Session) resolveContacts() {
	px, py := s.player.X, s.player.Y

	s.strikes.Each(func(st *spawners.Strike) {
		if st.Stage != spawners.StageStriking || st.Hit {
			return
		}
		span := contact.Span{ID: st.ID, Center: st.X, Half: s.strikes.HalfWidth()}
		if !span.Covers(px) {
			return
		}
		st.Hit = true
		s.damage(player.SourceElectric, float64(s.cfg.Player.StrikeDamage), st.ID)
	})

	threats := s.threats.Snapshot()
	pts := make([]contact.Point, 0, len(threats))
	for _, t := range threats {
		pts = append(pts, contact.Point{ID: t.ID, X: t.X, Y: t.Y, Radius: s.threats.Radius()})
	}
	for _, id := range contact.Touching(px, py, avatarRadius, pts) {
		if s.threats.Destroy(id) {
			s.damage(player.SourceContact, float64(s.cfg.Player.ThreatDamage), id)
		}
	}

	items := s.items.Snapshot()
	pts = pts[:0]
	for _, it := range items {
		pts = append(pts, contact.Point{ID: it.ID, X: it.X, Y: it.Y, Radius: s.items.Radius()})
	}
	for _, id := range contact.Touching(px, py, avatarRadius, pts) {
		kind, ok := s.items.Collect(id)
		if !ok {
			continue
		}
		switch kind {
		case spawners.ItemExp:
			s.gainExp(s.orch.XPReward())
		case spawners.ItemHeal:
			s.heal(s.cfg.Player.HealAmount)
		}
	}
}

func (s *Session) heal(n int) {
	if got := s.player.Heal(n); got > 0 {
		s.sink.Emit(event.Event{Kind: event.KindHeal, X: s.player.X, Value: float64(got)})
	}
}

func (s *Session) gainExp(n int) {
	levels := s.player.GainExp(n)
	for i := levels - 1; i >= 0; i-- {
		s.sink.Emit(event.Event{Kind: event.KindLevelUp, Value: float64(s.player.Level - i)})
	}
	s.pendingLevels += levels
}

func (s *Session) progress(dt float64) {
	if !s.player.Alive() {
		s.defeat()
		return
	}
	if got := s.player.Regen(dt); got > 0 {
		s.sink.Emit(event.Event{Kind: event.KindHeal, X: s.player.X, Value: float64(got), Detail: "regen"})
	}
	s.nextOffer()
}

func (s *Session) defeat() {
	s.defeated = true
	s.sink.Emit(event.Event{Kind: event.KindDefeat, X: s.player.X, Value: float64(s.orch.PhaseIndex())})
	s.Stop()
}

// nextOffer opens an offer for the oldest unspent level. A level with nothing eligible is
// spent without pausing.
func (s *Session) nextOffer() {
	for s.offer == nil && s.pendingLevels > 0 {
		s.pendingLevels--
		level := s.player.Level - s.pendingLevels
		defs := s.engine.Offer(s.owned, s.cfg.OfferCount)
		if len(defs) == 0 {
			continue
		}
		s.offer = defs
		s.offerLevel = level
		s.offerSeq++
		s.sink.Emit(event.Event{Kind: event.KindOffer, Value: float64(level), Detail: joinIDs(defs)})
	}
}

// Choose commits the i-th entry of the pending offer and resumes the session.
func (s *Session) Choose(i int) (*augments.Definition, error) {
	if s.defeated || s.stopped {
		return nil, ErrOver
	}
	if len(s.offer) == 0 {
		return nil, ErrNoOffer
	}
	if i < 0 || i >= len(s.offer) {
		return nil, ErrBadChoice
	}
	def := s.offer[i]
	s.offer = nil
	granted := s.engine.Commit(def, s.player, s.owned)
	s.sink.Emit(event.Event{Kind: event.KindCommit, Value: float64(s.offerLevel), Detail: def.ID})
	for _, g := range granted {
		if g != def {
			s.sink.Emit(event.Event{Kind: event.KindGrant, Detail: g.ID})
		}
	}
	if s.player.Companion {
		s.companionX = s.player.X + companionOffset
	}
	s.nextOffer()
	return def, nil
}

func joinIDs(defs []*augments.Definition) string {
	ids := make([]string, len(defs))
	for i, d := range defs {
		ids[i] = d.ID
	}
	return strings.Join(ids, ",")
}

func (s *Session) ID() string                           { return s.id }
func (s *Session) Tick() uint64                         { return s.tick }
func (s *Session) Elapsed() float64                     { return s.elapsed }
func (s *Session) Tuning() tuning.Tuning                { return s.cfg }
func (s *Session) CatalogDigest() string                { return s.catalogDigest }
func (s *Session) TuningDigest() string                 { return s.tuningDigest }
func (s *Session) Catalog() *augments.Catalog           { return s.engine.Catalog() }
func (s *Session) Player() *player.State                { return s.player }
func (s *Session) Owned() *augments.OwnedSet            { return s.owned }
func (s *Session) Orchestrator() *director.Orchestrator { return s.orch }
func (s *Session) Clouds() *spawners.Clouds             { return s.clouds }
func (s *Session) Strikes() *spawners.Strikes           { return s.strikes }
func (s *Session) Threats() *spawners.Threats           { return s.threats }
func (s *Session) Items() *spawners.Items               { return s.items }
func (s *Session) Offer() []*augments.Definition        { return s.offer }
func (s *Session) Paused() bool                         { return len(s.offer) > 0 }
func (s *Session) Defeated() bool                       { return s.defeated }
func (s *Session) Over() bool                           { return s.defeated || s.stopped }

// OfferSeq increases every time a new offer opens.
func (s *Session) OfferSeq() int { return s.offerSeq }

// TickEvents are the events emitted since the last Step began.
func (s *Session) TickEvents() []event.Event { return s.pending.Events }

// Frame is the full visible state, for observers.
func (s *Session) Frame() protocol.FrameMsg {
	p := s.player
	sun, global := s.strikes.Lights()
	f := protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		SessionID:       s.id,
		Tick:            s.tick,
		Time:            s.elapsed,
		Phase:           s.orch.Phase().String(),
		PhaseIndex:      s.orch.PhaseIndex(),
		PhaseTime:       s.orch.PhaseTime(),
		Ramp:            s.orch.Ramp(),
		Raining:         s.orch.Raining(),
		Heat:            s.orch.Heat(),
		Lights:          protocol.Lights{Sun: sun, Global: global},
		Player: protocol.PlayerView{
			HP:        p.HP,
			MaxHP:     p.MaxHP,
			Level:     p.Level,
			Exp:       p.Exp,
			MaxExp:    p.MaxExp,
			Pos:       [2]float64{p.X, p.Y},
			Shade:     s.ShadeCount(),
			SpeedMul:  p.SpeedMul,
			JumpMul:   p.JumpMul,
			MaxJumps:  p.MaxJumps,
			SunRes:    p.SunRes,
			ElecRes:   p.ElecRes,
			Companion: p.Companion,
		},
		Owned:    s.owned.IDs(),
		Offer:    AugmentViews(s.offer),
		Paused:   s.Paused(),
		Defeated: s.defeated,
	}
	for _, c := range s.clouds.Snapshot() {
		f.Clouds = append(f.Clouds, protocol.CloudView{Slot: c.Slot, Pos: [2]float64{c.X, c.Y}, Moving: c.Moving})
	}
	for _, st := range s.strikes.Snapshot() {
		f.Strikes = append(f.Strikes, protocol.StrikeView{ID: st.ID, Pos: [2]float64{st.X, st.Y}, Stage: st.Stage.String(), Visible: st.Visible})
	}
	for _, t := range s.threats.Snapshot() {
		f.Threats = append(f.Threats, protocol.ThreatView{ID: t.ID, Pos: [2]float64{t.X, t.Y}, Dir: t.Dir})
	}
	for _, it := range s.items.Snapshot() {
		f.Items = append(f.Items, protocol.ItemView{ID: it.ID, Kind: string(it.Kind), Pos: [2]float64{it.X, it.Y}})
	}
	for _, e := range s.pending.Events {
		f.Events = append(f.Events, protocol.EventView{T: e.Time, Kind: string(e.Kind), Entity: e.Entity, Value: e.Value, Detail: e.Detail})
	}
	return f
}

// OfferMsg describes the pending offer; ok is false when there is none.
func (s *Session) OfferMsg() (protocol.OfferMsg, bool) {
	if len(s.offer) == 0 {
		return protocol.OfferMsg{}, false
	}
	return protocol.OfferMsg{
		Type:            protocol.TypeOffer,
		ProtocolVersion: protocol.Version,
		SessionID:       s.id,
		Tick:            s.tick,
		Level:           s.offerLevel,
		Choices:         AugmentViews(s.offer),
	}, true
}

func AugmentViews(defs []*augments.Definition) []protocol.AugmentView {
	if len(defs) == 0 {
		return nil
	}
	out := make([]protocol.AugmentView, len(defs))
	for i, d := range defs {
		out[i] = protocol.AugmentView{ID: d.ID, Name: d.Name, Tier: d.Tier.String(), Weight: d.Weight}
	}
	return out
}

type Summary struct {
	ID            string   `json:"session_id"`
	Seed          uint64   `json:"seed"`
	CatalogDigest string   `json:"catalog_digest,omitempty"`
	Ticks         uint64   `json:"ticks"`
	Elapsed       float64  `json:"elapsed"`
	PhaseIndex    int      `json:"phase_index"`
	Level         int      `json:"level"`
	HP            int      `json:"hp"`
	Owned         []string `json:"owned"`
	Defeated      bool     `json:"defeated"`
}

func (s *Session) Summary() Summary {
	return Summary{
		ID:            s.id,
		Seed:          s.cfg.Seed,
		CatalogDigest: s.catalogDigest,
		Ticks:         s.tick,
		Elapsed:       s.elapsed,
		PhaseIndex:    s.orch.PhaseIndex(),
		Level:         s.player.Level,
		HP:            s.player.HP,
		Owned:         s.owned.IDs(),
		Defeated:      s.defeated,
	}
}
