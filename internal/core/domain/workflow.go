package domain

// WorkflowState tracks coarse-grained progress of a single upload through the
// autofill pipeline. Exactly one state is current at any time and transitions
// only move forward.
type WorkflowState string

const (
	StateWaitingForFile         WorkflowState = "waiting_for_file"
	StateGettingFileTextContent WorkflowState = "getting_file_text_content"
	StateGettingSuggestions     WorkflowState = "getting_suggestions"
	StateSuggestionsReceived    WorkflowState = "suggestions_received"
)

var workflowOrder = []WorkflowState{
	StateWaitingForFile,
	StateGettingFileTextContent,
	StateGettingSuggestions,
	StateSuggestionsReceived,
}

func (s WorkflowState) Valid() bool {
	for _, state := range workflowOrder {
		if s == state {
			return true
		}
	}
	return false
}

// Next returns the immediate successor state. The second result is false for
// the terminal state and for unknown states.
func (s WorkflowState) Next() (WorkflowState, bool) {
	for i, state := range workflowOrder {
		if s == state && i+1 < len(workflowOrder) {
			return workflowOrder[i+1], true
		}
	}
	return "", false
}

// CanAdvanceTo reports whether next is the legal successor of s. Skipping
// states or moving backward is never allowed.
func (s WorkflowState) CanAdvanceTo(next WorkflowState) bool {
	successor, ok := s.Next()
	return ok && successor == next
}

// StatusLine is the one-line progress text shown for each state.
func (s WorkflowState) StatusLine() string {
	switch s {
	case StateWaitingForFile:
		return "Waiting for a file"
	case StateGettingFileTextContent:
		return "Reading the uploaded document"
	case StateGettingSuggestions:
		return "Asking the model for suggestions"
	case StateSuggestionsReceived:
		return "Suggestions ready"
	default:
		return "Unknown"
	}
}
