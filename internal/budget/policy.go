package budget

import (
	"errors"
	"fmt"

	"codex-resume/internal/transcript"
)

// ErrBudgetTooSmall is returned when even the bare frame exceeds the budget.
var ErrBudgetTooSmall = errors.New("budget: frame alone exceeds the character budget")

// Result is an assembled prompt and what it took to produce it.
type Result struct {
	Text string

	// Kept and Dropped count rendered entries; Dropped entries are the oldest.
	Kept    int
	Dropped int
	Trimmed bool

	// Set when the full history went to a side file instead of the prompt.
	Overflowed bool
	SidePath   string
	Chars      int
	Lines      int
	Chunks     int
}

// Policy fits a rendered transcript into a prompt.
type Policy interface {
	Apply(d Document) (Result, error)
}

// Assemble renders t through layout and applies policy.
func Assemble(layout Layout, t transcript.Transcript, policy Policy) (Result, error) {
	return policy.Apply(Frame(layout, t))
}

// TrimToFit keeps the longest chronological suffix of entries whose prompt
// fits MaxChars. When the full prompt overflows and Tail is set, only the last
// Tail transcript entries are kept, re-rendered through TailLayout with each
// text capped at TailCap characters, before oldest entries are dropped.
type TrimToFit struct {
	MaxChars int

	Tail       int
	TailCap    int
	TailLayout *Layout
}

func (p TrimToFit) Apply(d Document) (Result, error) {
	full := d.Text()
	if p.MaxChars <= 0 || Chars(full) <= p.MaxChars {
		return Result{Text: full, Kept: d.Entries(), Chars: Chars(full)}, nil
	}

	fitted := d
	if p.Tail > 0 {
		fitted = p.tail(d)
	}
	start, ok := fitSuffix(fitted, p.MaxChars)
	if !ok {
		return Result{}, ErrBudgetTooSmall
	}
	text := fitted.textFrom(start)
	kept := fitted.Entries() - start
	return Result{
		Text:    text,
		Kept:    kept,
		Dropped: d.Entries() - kept,
		Trimmed: true,
		Chars:   Chars(text),
	}, nil
}

// fitSuffix finds the smallest start index whose suffix fits max. It reports
// false when not even the empty suffix fits.
func fitSuffix(d Document, max int) (int, bool) {
	frame := Chars(d.head) + 1 + Chars(d.tail)
	if frame > max {
		return 0, false
	}
	if len(d.entries) == 0 {
		return 0, true
	}

	sep := Chars(d.layout.Separator)
	// Trailing newline after the body.
	size := frame + 1
	start := len(d.entries)
	for i := len(d.entries) - 1; i >= 0; i-- {
		add := Chars(d.entries[i])
		if i < len(d.entries)-1 {
			add += sep
		}
		if size+add > max {
			break
		}
		size += add
		start = i
	}
	return start, true
}

func (p TrimToFit) tail(d Document) Document {
	entries := d.source.Entries
	if len(entries) > p.Tail {
		entries = entries[len(entries)-p.Tail:]
	}
	capped := make([]transcript.Entry, len(entries))
	for i, e := range entries {
		capped[i] = transcript.Entry{Kind: e.Kind, Text: transcript.Truncate(e.Text, p.TailCap)}
	}

	layout := d.layout
	if p.TailLayout != nil {
		layout = *p.TailLayout
	}
	t := d.source
	t.Entries = capped
	return Frame(layout, t)
}

// Store receives the full history when it overflows the prompt.
type Store interface {
	Write(text string) error
	Path() string
}

// Overflow passes the full prompt through while it stays under Threshold.
// Above it, the full text goes to Store and the prompt becomes an
// instruction to read it back in ChunkLines-sized pieces.
type Overflow struct {
	Threshold  int
	ChunkLines int
	Store      Store
}

func (p Overflow) Apply(d Document) (Result, error) {
	text := d.Text()
	chars := Chars(text)
	if chars <= p.Threshold {
		return Result{Text: text, Kept: d.Entries(), Chars: chars}, nil
	}
	if p.Store == nil {
		return Result{}, errors.New("budget: overflow store is not configured")
	}
	if err := p.Store.Write(text); err != nil {
		return Result{}, fmt.Errorf("budget: write overflow: %w", err)
	}

	chunk := p.ChunkLines
	if chunk <= 0 {
		chunk = 250
	}
	lines := Lines(text)
	res := Result{
		Kept:       d.Entries(),
		Overflowed: true,
		SidePath:   p.Store.Path(),
		Chars:      chars,
		Lines:      lines,
		Chunks:     (lines + chunk - 1) / chunk,
	}
	res.Text = overflowInstruction(res, chunk)
	return res, nil
}

func overflowInstruction(r Result, chunk int) string {
	return fmt.Sprintf(`🔴 MANDATORY: Use Read tool to load session context 🔴

Your previous session history is saved at:
%s

Size: %d characters (~%d tokens), %d lines.

Read it in %d chunks of %d lines, in order:
  Read(file_path=%q, offset=0, limit=%d)
  then advance offset by %d until all %d lines are read.

DO NOT USE:
- Shell commands (cat, head, tail, sed, dd)
- Any method other than Read tool

If you don't have Read tool, respond: "%s"

DO NOT re-execute old commands. After reading, wait for my new instruction.`,
		r.SidePath, r.Chars, r.Chars/4, r.Lines,
		r.Chunks, chunk,
		r.SidePath, chunk,
		chunk, r.Lines,
		ReadToolMissingReply)
}

// ReadToolMissingReply is what codex is asked to answer when it cannot read
// the side file.
const ReadToolMissingReply = "Read tool not available, please enable it."

