package rollout

import "time"

type RecordType string

const (
	RecordMessage            RecordType = "message"
	RecordFunctionCall       RecordType = "function_call"
	RecordFunctionCallOutput RecordType = "function_call_output"
	RecordReasoning          RecordType = "reasoning"
	RecordState              RecordType = "state"
	RecordUnknown            RecordType = "unknown"
)

const (
	ContentInputText  = "input_text"
	ContentOutputText = "output_text"
)

type ContentItem struct {
	Kind string
	Text string
}

// Record is one decoded line of a session log. Which fields are populated
// depends on Type.
type Record struct {
	Type    RecordType
	RawType string

	// message
	Role    string
	Content []ContentItem

	// function_call
	Name   string
	Params map[string]any

	// function_call_output
	Output string

	// reasoning
	Summary string
}

type SessionFile struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	SortKey string
}
