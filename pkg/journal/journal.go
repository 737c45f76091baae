package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Kind tells what was submitted.
type Kind string

const (
	KindFile Kind = "file"
	KindURL  Kind = "url"
)

// Submission is one journal entry.
type Submission struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	Target      string          `json:"target"`
	TaskIDs     []int           `json:"task_ids"`
	Response    json.RawMessage `json:"response,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// Journal stores submissions. Implementations must be safe for concurrent use.
type Journal interface {
	// Record stores a new submission. Returns ErrConflict if the ID is taken.
	Record(ctx context.Context, s *Submission) error

	// Get returns the submission with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Submission, error)

	// List returns up to limit submissions, newest first. A limit <= 0
	// returns all of them.
	List(ctx context.Context, limit int) ([]*Submission, error)

	// Delete removes a submission. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error

	// Close releases the resources held by the journal.
	Close() error
}

// HealthChecker is implemented by journals that depend on an external service.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewSubmission builds a journal entry for a submission response as
// returned by the client. The ID is a time ordered UUIDv7.
func NewSubmission(kind Kind, target string, response any) (*Submission, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating submission id: %w", err)
	}

	var raw json.RawMessage
	if response != nil {
		raw, err = json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("marshaling response: %w", err)
		}
	}

	return &Submission{
		ID:          id.String(),
		Kind:        kind,
		Target:      target,
		TaskIDs:     TaskIDs(response),
		Response:    raw,
		SubmittedAt: time.Now().UTC(),
	}, nil
}

// TaskIDs extracts the task ids from a decoded submission response. It
// understands {"task_id": N}, {"task_ids": [...]} and the web interface
// form {"data": {"task_ids": [...]}}. Anything else yields nil.
func TaskIDs(response any) []int {
	m, ok := response.(map[string]any)
	if !ok {
		return nil
	}

	if id, ok := toInt(m["task_id"]); ok {
		return []int{id}
	}
	if ids := intSlice(m["task_ids"]); len(ids) > 0 {
		return ids
	}
	if data, ok := m["data"].(map[string]any); ok {
		if ids := intSlice(data["task_ids"]); len(ids) > 0 {
			return ids
		}
		if id, ok := toInt(data["task_id"]); ok {
			return []int{id}
		}
	}
	return nil
}

func intSlice(v any) []int {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var ids []int
	for _, item := range items {
		if id, ok := toInt(item); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || n < 1 {
			return 0, false
		}
		return int(n), true
	case int:
		return n, n >= 1
	case json.Number:
		i, err := n.Int64()
		if err != nil || i < 1 {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

// Clone returns a deep copy of s.
func (s *Submission) Clone() *Submission {
	c := *s
	if s.TaskIDs != nil {
		c.TaskIDs = append([]int(nil), s.TaskIDs...)
	}
	if s.Response != nil {
		c.Response = append(json.RawMessage(nil), s.Response...)
	}
	return &c
}
