// Package scores keeps the local high score file: one username:score record
// per line, unsorted on disk.
package scores

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// MaxEntries is how many scores the table keeps.
const MaxEntries = 10

type Entry struct {
	Name  string
	Score int
}

// Table is the top of the score file, highest first.
type Table struct {
	path    string
	entries []Entry
	log     *zap.Logger
}

// Load reads path. A missing file is an empty table.
func Load(path string, log *zap.Logger) (*Table, error) {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Table{path: path, log: log}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open scores: %w", err)
	}
	defer f.Close()

	entries, err := Parse(f, log)
	if err != nil {
		return nil, fmt.Errorf("read scores: %w", err)
	}
	t.entries = top(entries)
	return t, nil
}

// Parse reads username:score lines. Malformed lines are logged and skipped.
func Parse(r io.Reader, log *zap.Logger) ([]Entry, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var out []Entry
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		e, err := parseLine(text)
		if err != nil {
			log.Warn("skipping score line", zap.Int("line", line), zap.Error(err))
			continue
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

func parseLine(s string) (Entry, error) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 {
		return Entry{}, fmt.Errorf("missing name in %q", s)
	}
	n, err := strconv.Atoi(s[i+1:])
	if err != nil || n < 0 {
		return Entry{}, fmt.Errorf("bad score in %q", s)
	}
	return Entry{Name: s[:i], Score: n}, nil
}

// top sorts descending by score, keeping file order among ties, and caps the
// list at MaxEntries.
func top(entries []Entry) []Entry {
	slices.SortStableFunc(entries, func(a, b Entry) int { return cmp.Compare(b.Score, a.Score) })
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	return entries
}

// Entries returns a copy of the table.
func (t *Table) Entries() []Entry { return slices.Clone(t.entries) }

// Qualifies reports whether score would enter the table.
func (t *Table) Qualifies(score int) bool {
	if score <= 0 {
		return false
	}
	return len(t.entries) < MaxEntries || score > t.entries[len(t.entries)-1].Score
}

// Insert adds a score and returns its zero-based rank, or -1 if it does not
// qualify.
func (t *Table) Insert(name string, score int) int {
	if !t.Qualifies(score) {
		return -1
	}
	rank, _ := slices.BinarySearchFunc(t.entries, score, func(e Entry, s int) int {
		// descending, new scores go after equal ones
		if e.Score >= s {
			return -1
		}
		return 1
	})
	t.entries = slices.Insert(t.entries, rank, Entry{Name: name, Score: score})
	if len(t.entries) > MaxEntries {
		t.entries = t.entries[:MaxEntries]
	}
	return rank
}

// Save writes the table to its file, replacing it atomically.
func (t *Table) Save() error {
	if dir := filepath.Dir(t.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save scores: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(t.path), ".scores-*")
	if err != nil {
		return fmt.Errorf("save scores: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, e := range t.entries {
		fmt.Fprintf(w, "%s:%d\n", e.Name, e.Score)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("save scores: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save scores: %w", err)
	}
	if err := os.Rename(tmp.Name(), t.path); err != nil {
		return fmt.Errorf("save scores: %w", err)
	}
	t.log.Debug("scores saved", zap.String("path", t.path), zap.Int("entries", len(t.entries)))
	return nil
}
