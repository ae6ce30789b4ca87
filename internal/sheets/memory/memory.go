package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ports "bizdash/internal/sheets"
)

var _ ports.RowWriter = (*Store)(nil)

// Store keeps exported sheets in memory.
type Store struct {
	mu     sync.Mutex
	sheets map[string][][]string
	writes int
}

func New() *Store {
	return &Store{sheets: make(map[string][][]string)}
}

// WriteRows replaces sheet with header followed by rows.
func (s *Store) WriteRows(_ context.Context, sheet string, header []string, rows [][]string) (string, error) {
	if sheet == "" {
		return "", errors.New("sheet name is required")
	}
	table := make([][]string, 0, len(rows)+1)
	table = append(table, append([]string(nil), header...))
	for _, r := range rows {
		table = append(table, append([]string(nil), r...))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[sheet] = table
	s.writes++
	return fmt.Sprintf("mem:%s!%d", sheet, len(table)), nil
}

// Sheet returns a copy of what was written to sheet, header first.
func (s *Store) Sheet(name string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.sheets[name]
	out := make([][]string, len(table))
	for i, r := range table {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Writes counts WriteRows calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
