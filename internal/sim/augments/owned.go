package augments

// OwnedSet is the insertion-ordered record of augments one player holds. Membership is by
// pointer identity. Add never deduplicates.
type OwnedSet struct {
	list  []*Definition
	count map[*Definition]int
}

func NewOwnedSet() *OwnedSet { return &OwnedSet{count: map[*Definition]int{}} }

func (s *OwnedSet) Add(d *Definition) {
	if s == nil || d == nil {
		return
	}
	if s.count == nil {
		s.count = map[*Definition]int{}
	}
	s.list = append(s.list, d)
	s.count[d]++
}

func (s *OwnedSet) Has(d *Definition) bool {
	if s == nil || d == nil {
		return false
	}
	return s.count[d] > 0
}

// Count reports how many times d was added.
func (s *OwnedSet) Count(d *Definition) int {
	if s == nil {
		return 0
	}
	return s.count[d]
}

func (s *OwnedSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.list)
}

func (s *OwnedSet) List() []*Definition {
	if s == nil {
		return nil
	}
	return append([]*Definition(nil), s.list...)
}

func (s *OwnedSet) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.list))
	for _, d := range s.list {
		out = append(out, d.ID)
	}
	return out
}
