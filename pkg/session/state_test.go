package session

import "testing"

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateConnecting, "Connecting"},
		{StateCreatingSession, "CreatingSession"},
		{StateUp, "Up"},
		{StateDown, "Down"},
		{StateClosed, "Closed"},
		{State(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		wantErr bool
	}{
		{"connecting to creating", StateConnecting, StateCreatingSession, false},
		{"creating to up", StateCreatingSession, StateUp, false},
		{"creating to down", StateCreatingSession, StateDown, false},
		{"up to down", StateUp, StateDown, false},
		{"down to creating", StateDown, StateCreatingSession, false},
		{"any to closed", StateUp, StateClosed, false},
		{"closed is terminal", StateClosed, StateCreatingSession, true},
		{"up cannot skip to creating", StateUp, StateCreatingSession, true},
		{"connecting cannot reach up directly", StateConnecting, StateUp, true},
		{"down cannot reach up directly", StateDown, StateUp, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := transition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("transition(%v, %v) error = %v, wantErr %v", tt.from, tt.to, err, tt.wantErr)
			}
		})
	}
}
