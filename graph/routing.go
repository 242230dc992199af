package graph

import "sync"

// RoutingPhase is the lifecycle stage of a routing transition.
type RoutingPhase uint8

const (
	// RoutingNone means no transition is installed.
	RoutingNone RoutingPhase = iota
	// RoutingActive means the fade is in progress.
	RoutingActive
	// RoutingCompleted means the fade reached its target and awaits
	// cleanup.
	RoutingCompleted
)

// RoutingState is a bounded-duration gain ramp applied while a node is
// dynamically rerouted between channels, avoiding discontinuities. The
// per-channel gain moves in equal linear steps: one call to
// Manager.UpdateRoutingStates advances the fade by one cycle.
//
// Channels present only in the target mask ramp 0→1, channels being left
// ramp 1→0, channels present in both stay at 1.
type RoutingState struct {
	mu            sync.Mutex
	fromChannels  uint32
	toChannels    uint32
	fadeCycles    uint32
	cyclesElapsed uint32
	phase         RoutingPhase
	amount        [32]float64
}

func newRoutingState(from, to uint32, fadeCycles uint32) *RoutingState {
	s := &RoutingState{
		fromChannels: from,
		toChannels:   to,
		fadeCycles:   fadeCycles,
		phase:        RoutingActive,
	}
	for ch := uint32(0); ch < 32; ch++ {
		if from&(1<<ch) != 0 {
			s.amount[ch] = 1
		}
	}
	return s
}

// Amount returns the current gain for the channel.
func (s *RoutingState) Amount(channel uint32) float64 {
	if channel >= 32 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.amount[channel]
}

// masks returns the source and target channel masks.
func (s *RoutingState) masks() (from, to uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fromChannels, s.toChannels
}

// Phase returns the current lifecycle stage.
func (s *RoutingState) Phase() RoutingPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// update advances the fade by one cycle.
func (s *RoutingState) update() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != RoutingActive {
		return
	}
	s.cyclesElapsed++

	progress := 1.0
	if s.fadeCycles > 0 {
		progress = float64(s.cyclesElapsed) / float64(s.fadeCycles)
		if progress > 1 {
			progress = 1
		}
	}
	for ch := uint32(0); ch < 32; ch++ {
		from := s.fromChannels&(1<<ch) != 0
		to := s.toChannels&(1<<ch) != 0
		switch {
		case from && to:
			s.amount[ch] = 1
		case to:
			s.amount[ch] = progress
		case from:
			s.amount[ch] = 1 - progress
		}
	}
	if s.cyclesElapsed >= s.fadeCycles {
		s.phase = RoutingCompleted
	}
}
