package persist

import "testing"

// NewTestState creates a fresh in-memory state file.
func NewTestState(t *testing.T) *State {
	t.Helper()

	state, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test state: %v", err)
	}
	t.Cleanup(func() { state.Close() })

	return state
}
