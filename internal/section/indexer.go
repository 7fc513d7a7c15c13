// Package section buckets the rows of a sectioned list by the value of the
// query's section index column.
//
// An Indexer is built from the index column values in row order and an
// alphabet: one section per rune. Row values are bucketed by their first
// letter, compared at primary collation strength (case, accents and width are
// ignored). When the rows are sorted descending the alphabet, its labels and
// the section positions are reversed so lookups work in either direction.
package section

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrLabelCount is returned when custom labels do not match the alphabet.
var ErrLabelCount = errors.New("section labels must match the alphabet length")

// Indexer maps sections to row positions and back.
//
// An Indexer is not safe for concurrent use.
type Indexer struct {
	values    []string
	sections  []string // one letter per section, in row order
	labels    []string // custom labels, reversed with sections; nil for defaults
	sorted    bool
	desc      bool
	positions []int
	collator  *collate.Collator
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLabels replaces the section letters shown to the user with custom
// labels, one per alphabet rune. An alphabet of "0123" can be shown as
// "First", "Second", ... while still bucketing by digit.
func WithLabels(labels ...string) IndexerOption {
	return func(ix *Indexer) {
		if len(labels) == 0 {
			ix.labels = nil
			return
		}
		ix.labels = slices.Clone(labels)
	}
}

// WithSorted controls direction inference. Sorted indexers (the default)
// compare the first and last row values to detect descending order;
// unsorted indexers keep the direction implied by the alphabet.
func WithSorted(sorted bool) IndexerOption {
	return func(ix *Indexer) {
		ix.sorted = sorted
	}
}

// New builds an Indexer over values, the section index column in row order.
//
// The alphabet's own direction (first rune greater than last) is the initial
// direction; see WithSorted.
func New(values []string, alphabet string, opts ...IndexerOption) (*Indexer, error) {
	sections := make([]string, 0, len(alphabet))
	for _, r := range alphabet {
		sections = append(sections, string(r))
	}

	ix := &Indexer{
		sections: sections,
		sorted:   true,
		collator: collate.New(language.Und, collate.IgnoreCase, collate.IgnoreDiacritics, collate.IgnoreWidth),
	}
	for _, opt := range opts {
		opt(ix)
	}
	if ix.labels != nil && len(ix.labels) != len(ix.sections) {
		return nil, fmt.Errorf("%w: %d labels for %d sections", ErrLabelCount, len(ix.labels), len(ix.sections))
	}
	if n := len(sections); n > 0 {
		ix.desc = sections[0] > sections[n-1]
	}

	ix.SetValues(values)
	return ix, nil
}

// SetValues replaces the row values, re-inferring the direction for sorted
// indexers.
func (ix *Indexer) SetValues(values []string) {
	ix.values = slices.Clone(values)

	if ix.sorted {
		desc := false
		if n := len(values); n > 0 {
			desc = Descending(values[0], values[n-1])
		}
		if desc != ix.desc {
			ix.desc = desc
			slices.Reverse(ix.sections)
			slices.Reverse(ix.labels)
		}
	}

	ix.positions = make([]int, len(ix.sections))
	for i, letter := range ix.sections {
		ix.positions[i] = ix.search(letter)
	}
}

// Descending reports whether a column whose first row holds first and last
// row holds last is sorted descending. Values are compared as integers when
// both parse, otherwise as strings.
func Descending(first, last string) bool {
	a, errA := strconv.Atoi(strings.TrimSpace(first))
	b, errB := strconv.Atoi(strings.TrimSpace(last))
	if errA == nil && errB == nil {
		return a > b
	}
	return first > last
}

// search finds the first row whose letter is at or past letter in the row
// direction.
func (ix *Indexer) search(letter string) int {
	return sort.Search(len(ix.values), func(i int) bool {
		c := ix.compare(ix.values[i], letter)
		if ix.desc {
			return c <= 0
		}
		return c >= 0
	})
}

func (ix *Indexer) compare(value, letter string) int {
	first := " "
	for _, r := range value {
		first = string(r)
		break
	}
	return ix.collator.CompareString(first, letter)
}

// Desc reports whether the rows are treated as descending.
func (ix *Indexer) Desc() bool { return ix.desc }

// Len returns the number of rows.
func (ix *Indexer) Len() int { return len(ix.values) }

// Sections returns the section letters in row order.
func (ix *Indexer) Sections() []string { return slices.Clone(ix.sections) }

// Labels returns the custom labels, or the section letters when none are set.
func (ix *Indexer) Labels() []string {
	if ix.labels != nil {
		return slices.Clone(ix.labels)
	}
	return ix.Sections()
}

// PositionForSection returns the first row of a section. Empty sections
// return the first row of the next non-empty section, or Len.
func (ix *Indexer) PositionForSection(section int) int {
	if len(ix.positions) == 0 {
		return 0
	}
	return ix.positions[ix.clamp(section)]
}

// SectionForPosition returns the section containing a row.
func (ix *Indexer) SectionForPosition(position int) int {
	if len(ix.positions) == 0 {
		return 0
	}
	s := sort.Search(len(ix.positions), func(i int) bool {
		return ix.positions[i] > position
	}) - 1
	return max(s, 0)
}

// CountForSection returns the number of rows in a section: the distance to
// the next section's start, or to the end for the last section.
func (ix *Indexer) CountForSection(section int) int {
	if len(ix.positions) == 0 {
		return 0
	}
	section = ix.clamp(section)
	pos := ix.positions[section]
	if section >= len(ix.positions)-1 {
		return len(ix.values) - pos
	}
	return ix.positions[section+1] - pos
}

func (ix *Indexer) clamp(section int) int {
	return min(max(section, 0), len(ix.positions)-1)
}
