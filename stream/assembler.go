package stream

import (
	"encoding/json"
	"sort"
	"strings"

	turnkit "github.com/stephencalder/turnkit"
)

// Assembler merges tool-call fragments, keyed by their position index
// within a single model turn, into complete invocations. It is pure: no
// I/O, no side effects, and Finalize is deterministic for a given fragment
// sequence. An Assembler is scoped to one generation attempt and discarded
// afterwards.
type Assembler struct {
	entries map[int]*fragmentEntry
}

type fragmentEntry struct {
	index int
	id    string
	name  string
	args  strings.Builder
}

// NewAssembler creates an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{entries: make(map[int]*fragmentEntry)}
}

// Add merges one fragment into the accumulator for its index. ID and name
// overwrite when present; argument deltas append in arrival order. Fragment
// order matters: the argument text is a raw JSON fragment stream, so
// reordering would corrupt the concatenation.
func (a *Assembler) Add(f Fragment) {
	entry, ok := a.entries[f.Index]
	if !ok {
		entry = &fragmentEntry{index: f.Index}
		a.entries[f.Index] = entry
	}
	if f.ID != "" {
		entry.id = f.ID
	}
	if f.Name != "" {
		entry.name = f.Name
	}
	entry.args.WriteString(f.ArgumentsDelta)
}

// Len returns the number of accumulator entries.
func (a *Assembler) Len() int {
	return len(a.entries)
}

// Finalize yields the complete invocations in ascending index order.
// Entries missing an id or a name are malformed fragments and are dropped.
// Argument text that does not parse as a JSON object yields an empty
// argument map rather than dropping the invocation: the tool validates its
// own required fields and fails loudly if the call is truly unusable.
//
// Finalize does not consume the accumulator; calling it again yields
// identical invocations.
func (a *Assembler) Finalize() []turnkit.ToolInvocation {
	indexes := make([]int, 0, len(a.entries))
	for idx, entry := range a.entries {
		if entry.id == "" || entry.name == "" {
			continue
		}
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	invocations := make([]turnkit.ToolInvocation, 0, len(indexes))
	for _, idx := range indexes {
		entry := a.entries[idx]
		raw := entry.args.String()

		args := make(map[string]any)
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
				args = make(map[string]any)
			}
		}

		invocations = append(invocations, turnkit.ToolInvocation{
			ID:           entry.id,
			Name:         entry.name,
			Arguments:    args,
			RawArguments: raw,
		})
	}
	return invocations
}
