// Package featindex reads the feature-index mapping shared by every EXE filter predictor.
// The mapping is a C enum of PP_FEAT_<name> = <slot> entries; generated headers index the
// runtime feature vector with these symbols, so the trainer only looks slots up and never
// assigns them.
package featindex

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"

	"exe-predictor/internal/common"
)

//go:embed exe_predict_feature_index.h
var builtin []byte

var entryPattern = regexp.MustCompile(`\b` + common.FeatureSymbolStem + `(\w+)\s*=\s*(\d+)`)

// Mapping maps feature identifiers to their slot in the runtime feature vector.
type Mapping struct {
	slots map[string]int
	names []string // ordered by slot
}

// Default returns the mapping compiled into the binary.
func Default() *Mapping {
	m, err := Parse(bytes.NewReader(builtin))
	if err != nil {
		panic(fmt.Sprintf("embedded feature index is invalid: %v", err))
	}
	return m
}

// Load reads a mapping header from disk. An empty path returns the built-in mapping.
func Load(path string) (*Mapping, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feature index %s: %w", path, err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("feature index %s: %w", path, err)
	}
	return m, nil
}

// Parse scans enum entries line by line. Duplicate names or slots are rejected.
func Parse(r io.Reader) (*Mapping, error) {
	m := &Mapping{slots: make(map[string]int)}
	owner := make(map[int]string)

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		match := entryPattern.FindStringSubmatch(sc.Text())
		if match == nil {
			continue
		}
		name := match[1]
		slot, err := strconv.Atoi(match[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid slot %q: %w", line, match[2], err)
		}
		if _, dup := m.slots[name]; dup {
			return nil, fmt.Errorf("line %d: duplicate feature %q", line, name)
		}
		if prev, dup := owner[slot]; dup {
			return nil, fmt.Errorf("line %d: slot %d already used by %q", line, slot, prev)
		}
		m.slots[name] = slot
		owner[slot] = name
		m.names = append(m.names, name)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feature index: %w", err)
	}
	if len(m.slots) == 0 {
		return nil, fmt.Errorf("no %s entries found", common.FeatureSymbolStem)
	}

	sort.SliceStable(m.names, func(a, b int) bool { return m.slots[m.names[a]] < m.slots[m.names[b]] })
	return m, nil
}

// Slot returns the slot of an identifier-form feature name.
func (m *Mapping) Slot(name string) (int, bool) {
	s, ok := m.slots[name]
	return s, ok
}

// Symbol returns the C enum symbol for a feature identifier.
func Symbol(name string) string {
	return common.FeatureSymbolStem + name
}

// Names returns the feature identifiers ordered by slot.
func (m *Mapping) Names() []string {
	return append([]string(nil), m.names...)
}

// Len returns the number of entries.
func (m *Mapping) Len() int {
	return len(m.slots)
}
