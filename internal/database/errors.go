package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a record is not found
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists is returned when trying to insert a duplicate record
var ErrAlreadyExists = errors.New("record already exists")

const (
	maxCauses   = 3
	maxCauseLen = 160
)

// PersistenceError is returned when a write fails for a reason other than a
// duplicate key. Causes holds a bounded summary of the distinct failures.
type PersistenceError struct {
	Op       string
	Inserted int // records written before or despite the failure
	Failed   int
	Causes   []string
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %d record(s) failed: %s", e.Op, e.Failed, strings.Join(e.Causes, "; "))
}

func newPersistenceError(op string, inserted int, failures []error) *PersistenceError {
	return &PersistenceError{
		Op:       op,
		Inserted: inserted,
		Failed:   len(failures),
		Causes:   summarize(failures),
	}
}

// summarize keeps the first few distinct causes, each cut to a bounded length
func summarize(failures []error) []string {
	seen := make(map[string]bool)
	causes := make([]string, 0, maxCauses)
	for _, err := range failures {
		if len(causes) == maxCauses {
			break
		}
		msg := err.Error()
		if len(msg) > maxCauseLen {
			msg = msg[:maxCauseLen]
		}
		if seen[msg] {
			continue
		}
		seen[msg] = true
		causes = append(causes, msg)
	}
	return causes
}

// isDuplicateKey reports whether err is a primary key or unique violation
func isDuplicateKey(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}

	return false
}
