package transcript

// Mode holds the per-variant extraction settings. A zero cap means the field
// is not truncated.
type Mode struct {
	Name string

	MaxUserChars       int
	MaxAssistantChars  int
	MaxToolOutputChars int
	PreserveFullOutput bool

	IncludeTools     bool
	IncludeReasoning bool

	// DropTaggedUser drops any user text that opens with a '<' tag, not just
	// the known preambles.
	DropTaggedUser bool

	// MaxEntries keeps only the most recent entries; 0 keeps all.
	MaxEntries int
}

var (
	Light = Mode{
		Name: "light",
	}

	Full = Mode{
		Name:               "full",
		PreserveFullOutput: true,
		IncludeTools:       true,
		IncludeReasoning:   true,
	}

	Chunked = Mode{
		Name:              "chunked",
		MaxUserChars:      1000,
		MaxAssistantChars: 1500,
		DropTaggedUser:    true,
		MaxEntries:        50,
	}

	Direct = Mode{
		Name:              "direct",
		MaxUserChars:      1000,
		MaxAssistantChars: 2000,
		DropTaggedUser:    true,
	}

	Preview = Mode{
		Name:              "preview",
		MaxUserChars:      500,
		MaxAssistantChars: 500,
		DropTaggedUser:    true,
	}
)

const defaultToolOutputChars = 2000

func (m Mode) toolOutputCap() int {
	if m.PreserveFullOutput {
		return 0
	}
	if m.MaxToolOutputChars > 0 {
		return m.MaxToolOutputChars
	}
	return defaultToolOutputChars
}
