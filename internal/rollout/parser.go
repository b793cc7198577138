package rollout

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"
)

// maxLineBytes bounds a single line; longer lines are skipped like malformed
// ones.
var maxLineBytes = 16 * 1024 * 1024

// errSkipLine marks a line that decoded but carries nothing callers see
// (no type, or a state record).
var errSkipLine = errors.New("skip line")

// Records yields the records of the session log at path in file order. Each
// range over the returned sequence reopens the file. Lines that fail to decode
// or exceed maxLineBytes are skipped; only I/O failures are yielded as an
// error, after which the sequence ends.
func Records(path string) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		file, err := os.Open(path)
		if err != nil {
			yield(Record{}, fmt.Errorf("open %s: %w", path, err))
			return
		}
		defer file.Close()

		reader := bufio.NewReaderSize(file, 64*1024)
		var buf []byte
		oversized := false
		for {
			chunk, isPrefix, err := reader.ReadLine()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield(Record{}, fmt.Errorf("read %s: %w", path, err))
				}
				return
			}
			if !oversized {
				if len(buf)+len(chunk) > maxLineBytes {
					oversized = true
					buf = buf[:0]
				} else {
					buf = append(buf, chunk...)
				}
			}
			if isPrefix {
				continue
			}

			skip := oversized
			line := bytes.TrimSpace(buf)
			oversized = false
			if skip || len(line) == 0 {
				buf = buf[:0]
				continue
			}
			rec, err := ParseLine(line)
			buf = buf[:0]
			if err != nil {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// ReadAll collects Records(path) into a slice.
func ReadAll(path string) ([]Record, error) {
	var out []Record
	for rec, err := range Records(path) {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ParseLine decodes a single JSONL line. It returns an error for malformed
// JSON and for lines that should be dropped (missing type, state records).
func ParseLine(line []byte) (Record, error) {
	var obj map[string]any
	if err := json.Unmarshal(line, &obj); err != nil {
		return Record{}, err
	}

	typ := recordType(obj)
	if typ == "response_item" {
		if payload, ok := obj["payload"].(map[string]any); ok {
			obj = payload
			typ = recordType(obj)
		}
	}
	if typ == "" || typ == string(RecordState) {
		return Record{}, errSkipLine
	}

	rec := Record{Type: RecordType(typ), RawType: typ}
	switch rec.Type {
	case RecordMessage:
		rec.Role = strings.ToLower(asString(obj["role"]))
		rec.Content = contentItems(obj["content"])
	case RecordFunctionCall:
		rec.Name = asString(obj["name"])
		rec.Params = callParams(obj)
	case RecordFunctionCallOutput:
		rec.Output = coerceText(obj["output"])
	case RecordReasoning:
		rec.Summary = coerceText(obj["summary"])
	default:
		rec.Type = RecordUnknown
	}
	return rec, nil
}

func recordType(obj map[string]any) string {
	if s := asString(obj["type"]); s != "" {
		return s
	}
	return asString(obj["record_type"])
}

func contentItems(v any) []ContentItem {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []ContentItem{{Kind: ContentInputText, Text: t}}
	case []any:
		items := make([]ContentItem, 0, len(t))
		for _, raw := range t {
			m, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			text, _ := m["text"].(string)
			items = append(items, ContentItem{Kind: asString(m["type"]), Text: text})
		}
		return items
	}
	return nil
}

// callParams reads the call's parameters from either the legacy "parameters"
// object or the newer "arguments" JSON string.
func callParams(obj map[string]any) map[string]any {
	if m, ok := obj["parameters"].(map[string]any); ok {
		return m
	}
	switch args := obj["arguments"].(type) {
	case map[string]any:
		return args
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(args), &m); err == nil {
			return m
		}
	}
	if m, ok := obj["input"].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func coerceText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := coerceText(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	case map[string]any:
		for _, key := range []string{"text", "output", "content", "result"} {
			if s := coerceText(t[key]); s != "" {
				return s
			}
		}
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
