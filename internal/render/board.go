package render

import (
	"html/template"
	"sync"
	"time"
)

// Spec declares one region of a Board.
type Spec struct {
	ID    string
	Label string
}

// View is a read-only copy of a painted region.
type View struct {
	ID    string
	Label string
	Class string
	HTML  template.HTML
	// Generation is the refresh cycle that last painted the region; zero
	// while it has never been painted.
	Generation uint64
	UpdatedAt  time.Time
}

type slot struct {
	label   string
	region  *HTMLRegion
	gen     uint64
	updated time.Time
}

// Board is the set of regions, keyed by id, in declaration order. Each
// Paint builds fresh content off-lock and swaps it in whole, so readers
// never see a half-painted region.
type Board struct {
	mu         sync.RWMutex
	staleGuard bool
	order      []string
	slots      map[string]*slot
}

// NewBoard creates a board. With staleGuard set, a paint from an older
// generation than the region's current one is dropped; otherwise the last
// write wins.
func NewBoard(staleGuard bool, specs ...Spec) *Board {
	b := &Board{
		staleGuard: staleGuard,
		slots:      make(map[string]*slot, len(specs)),
	}
	for _, s := range specs {
		if _, dup := b.slots[s.ID]; dup {
			continue
		}
		b.order = append(b.order, s.ID)
		b.slots[s.ID] = &slot{label: s.Label, region: &HTMLRegion{}}
	}
	return b
}

// Paint runs paint against a fresh region and installs the result as the
// content of id. It reports whether the write was kept.
func (b *Board) Paint(id string, gen uint64, paint func(Region)) bool {
	fresh := &HTMLRegion{}
	paint(fresh)

	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.slots[id]
	if !ok {
		return false
	}
	if b.staleGuard && gen < s.gen {
		return false
	}
	s.region = fresh
	s.gen = gen
	s.updated = time.Now()
	return true
}

// Replay paints the current content of id into dst.
func (b *Board) Replay(id string, dst Region) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.slots[id]
	if !ok {
		return false
	}
	s.region.Replay(dst)
	return true
}

// IDs returns region ids in declaration order.
func (b *Board) IDs() []string {
	return append([]string(nil), b.order...)
}

// View returns the current content of id.
func (b *Board) View(id string) (View, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.slots[id]
	if !ok {
		return View{}, false
	}
	return s.view(id), true
}

// Views returns every region in declaration order.
func (b *Board) Views() []View {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]View, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.slots[id].view(id))
	}
	return out
}

func (s *slot) view(id string) View {
	return View{
		ID:         id,
		Label:      s.label,
		Class:      s.region.Class(),
		HTML:       s.region.HTML(),
		Generation: s.gen,
		UpdatedAt:  s.updated,
	}
}
