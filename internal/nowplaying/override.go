package nowplaying

import "github.com/genricoloni/nowshowing/internal/domain"

// Mode is the now-playing override state
type Mode int

const (
	Idle Mode = iota
	NowPlaying
)

func (m Mode) String() string {
	if m == NowPlaying {
		return "now_playing"
	}
	return "idle"
}

// Override tracks whether something is playing on the media server.
// It is not safe for concurrent use; the owner serializes access.
type Override struct {
	mode Mode
}

// Mode returns the current state
func (o *Override) Mode() Mode {
	return o.mode
}

// Active reports whether the override is in NowPlaying
func (o *Override) Active() bool {
	return o.mode == NowPlaying
}

// Apply feeds a play-session state string. Unknown states are ignored.
// It returns whether the state was recognized and whether the mode changed.
func (o *Override) Apply(state string) (recognized, changed bool) {
	var next Mode
	switch domain.PlayerStatus(state) {
	case domain.StatusPlaying:
		next = NowPlaying
	case domain.StatusPaused, domain.StatusStopped:
		next = Idle
	default:
		return false, false
	}

	changed = next != o.mode
	o.mode = next
	return true, changed
}

// Reset returns to Idle
func (o *Override) Reset() {
	o.mode = Idle
}
