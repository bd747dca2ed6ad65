package domain

import "testing"

func TestWorkflowStatesAdvanceOnlyForward(t *testing.T) {
	cases := []struct {
		from    WorkflowState
		to      WorkflowState
		allowed bool
	}{
		{StateWaitingForFile, StateGettingFileTextContent, true},
		{StateGettingFileTextContent, StateGettingSuggestions, true},
		{StateGettingSuggestions, StateSuggestionsReceived, true},

		// skipping a stage
		{StateWaitingForFile, StateGettingSuggestions, false},
		{StateWaitingForFile, StateSuggestionsReceived, false},
		{StateGettingFileTextContent, StateSuggestionsReceived, false},

		// backwards
		{StateGettingSuggestions, StateGettingFileTextContent, false},
		{StateSuggestionsReceived, StateWaitingForFile, false},

		// terminal and self transitions
		{StateSuggestionsReceived, StateSuggestionsReceived, false},
		{StateWaitingForFile, StateWaitingForFile, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanAdvanceTo(tc.to); got != tc.allowed {
			t.Fatalf("CanAdvanceTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestWorkflowStateNext(t *testing.T) {
	next, ok := StateWaitingForFile.Next()
	if !ok || next != StateGettingFileTextContent {
		t.Fatalf("Next() = %s, %v", next, ok)
	}
	if _, ok := StateSuggestionsReceived.Next(); ok {
		t.Fatalf("terminal state must have no successor")
	}
	if _, ok := WorkflowState("bogus").Next(); ok {
		t.Fatalf("unknown state must have no successor")
	}
}

func TestWorkflowStateStatusLines(t *testing.T) {
	for _, state := range []WorkflowState{
		StateWaitingForFile,
		StateGettingFileTextContent,
		StateGettingSuggestions,
		StateSuggestionsReceived,
	} {
		if !state.Valid() {
			t.Fatalf("state %s must be valid", state)
		}
		if state.StatusLine() == "" || state.StatusLine() == "Unknown" {
			t.Fatalf("state %s must have a status line", state)
		}
	}
	if WorkflowState("bogus").StatusLine() != "Unknown" {
		t.Fatalf("unknown state must map to the Unknown status line")
	}
}
