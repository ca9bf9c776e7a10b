package conflict

import (
	"sync"

	"github.com/ShayCichocki/hivemind/pkg/models"
)

// Log is the append-only conflict log. Records are never rewritten;
// Records returns copies so callers cannot mutate history.
type Log struct {
	records []*models.ConflictRecord
	mu      sync.RWMutex
}

// NewLog creates an empty conflict log.
func NewLog() *Log {
	return &Log{}
}

// Append adds a record to the log.
func (l *Log) Append(record *models.ConflictRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
}

// Records returns a snapshot of all records in append order.
func (l *Log) Records() []*models.ConflictRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*models.ConflictRecord, len(l.records))
	for i, r := range l.records {
		cp := *r
		out[i] = &cp
	}
	return out
}

// Len returns the number of logged records.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
