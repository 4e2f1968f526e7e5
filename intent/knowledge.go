package intent

import (
	"fmt"
	"strings"

	"github.com/poiesic/butler/core"
)

// Entry lists the example phrases of one intent.
type Entry struct {
	Intent  core.Intent `yaml:"intent" json:"intent"`
	Phrases []string    `yaml:"phrases" json:"phrases"`
}

// KnowledgeBase is the ordered list of intent entries. Order matters: it is
// the row order of the index and therefore decides ties.
type KnowledgeBase []Entry

// Validate checks every intent is known and no phrase is blank.
func (kb KnowledgeBase) Validate() error {
	for i, e := range kb {
		if err := core.ValidateIntent(e.Intent); err != nil {
			return fmt.Errorf("%w: entry %d: %w", ErrInvalidKnowledgeBase, i, err)
		}
		for j, p := range e.Phrases {
			if strings.TrimSpace(p) == "" {
				return fmt.Errorf("%w: entry %d (%s) phrase %d: %w", ErrInvalidKnowledgeBase, i, e.Intent, j, core.ErrEmptyPhrase)
			}
		}
	}
	return nil
}

// Exemplars flattens the knowledge base into rows in declaration order.
// Vectors are left empty.
func (kb KnowledgeBase) Exemplars() []core.Exemplar {
	var out []core.Exemplar
	for _, e := range kb {
		for _, p := range e.Phrases {
			out = append(out, core.Exemplar{Phrase: p, Intent: e.Intent})
		}
	}
	return out
}

// Phrases returns every phrase in row order.
func (kb KnowledgeBase) Phrases() []string {
	var out []string
	for _, e := range kb {
		out = append(out, e.Phrases...)
	}
	return out
}

// Clone returns a deep copy of kb.
func (kb KnowledgeBase) Clone() KnowledgeBase {
	out := make(KnowledgeBase, len(kb))
	for i, e := range kb {
		out[i] = Entry{Intent: e.Intent, Phrases: append([]string(nil), e.Phrases...)}
	}
	return out
}

// With returns a copy of kb with phrases appended as one more entry for
// the intent. kb itself is not modified.
func (kb KnowledgeBase) With(i core.Intent, phrases ...string) KnowledgeBase {
	out := make(KnowledgeBase, len(kb), len(kb)+1)
	copy(out, kb)
	if len(phrases) == 0 {
		return out
	}
	return append(out, Entry{Intent: i, Phrases: append([]string(nil), phrases...)})
}
