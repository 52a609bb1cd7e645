package engine

import "github.com/genricoloni/nowpaper/internal/domain"

// Policy tunes when a redraw is worth the cost of a slow panel refresh
type Policy struct {
	// RefreshWhilePlaying redraws every tick during playback so the progress
	// bar keeps moving, even when nothing else changed
	RefreshWhilePlaying bool
}

// DefaultPolicy always redraws while playing
var DefaultPolicy = Policy{RefreshWhilePlaying: true}

// ShouldUpdate decides with the default policy
func ShouldUpdate(prev, cur *domain.TrackSnapshot) bool {
	return DefaultPolicy.ShouldUpdate(prev, cur)
}

// ShouldUpdate reports whether cur differs from the last rendered snapshot
// enough to redraw
func (p Policy) ShouldUpdate(prev, cur *domain.TrackSnapshot) bool {
	if prev == nil && cur == nil {
		return false
	}
	// session started or ended
	if prev == nil || cur == nil {
		return true
	}
	if cur.Title != prev.Title || cur.Artist != prev.Artist || cur.Status != prev.Status {
		return true
	}
	return p.RefreshWhilePlaying && cur.Status == domain.StatusPlaying
}
