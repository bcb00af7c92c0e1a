package main

import (
	"skyshade.ai/internal/sim/contact"
	"skyshade.ai/internal/sim/session"
)

// dodgeMargin is how far past a strike edge the autopilot steps.
const dodgeMargin = 0.75

// autopilot stands in for the avatar's input: it takes the first offered augment, steps out
// from under live strikes and otherwise walks to the nearest shade.
type autopilot struct{}

func (autopilot) Control(s *session.Session) {
	if s.Paused() {
		_, _ = s.Choose(0)
		return
	}
	x := s.Player().X
	half := s.Strikes().HalfWidth()
	for _, st := range s.Strikes().Snapshot() {
		reach := half + dodgeMargin
		if st.Hit || st.X-x > reach || x-st.X > reach {
			continue
		}
		if x >= st.X {
			s.MoveTo(st.X + reach)
		} else {
			s.MoveTo(st.X - reach)
		}
		return
	}
	if target, ok := contact.NearestCenter(x, s.ShadeSpans()); ok {
		s.MoveTo(target)
	}
}
