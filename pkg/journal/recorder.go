package journal

import (
	"context"
	"log/slog"

	"github.com/rhuss/cuckoo/pkg/debug"
	"github.com/rhuss/cuckoo/pkg/observability"
)

// Submitter is the part of the sandbox client that creates tasks.
type Submitter interface {
	SubmitFile(ctx context.Context, path string, fields map[string]string) (any, error)
	SubmitURL(ctx context.Context, target string, fields map[string]string) (any, error)
}

// Recorder forwards submissions to a Submitter and journals the ones that
// created tasks. A rejected submission answers with a server message and no
// task id, so it is not recorded. Journal failures are logged and counted,
// the submission result is always returned unchanged.
type Recorder struct {
	submitter Submitter
	journal   Journal
	backend   string
}

var _ Submitter = (*Recorder)(nil)

// NewRecorder wraps s. backend labels the journal metrics ("memory",
// "postgres"). A nil journal disables recording.
func NewRecorder(s Submitter, j Journal, backend string) *Recorder {
	return &Recorder{submitter: s, journal: j, backend: backend}
}

// SubmitFile submits a file and records the resulting tasks.
func (r *Recorder) SubmitFile(ctx context.Context, path string, fields map[string]string) (any, error) {
	resp, err := r.submitter.SubmitFile(ctx, path, fields)
	if err != nil {
		return nil, err
	}
	r.record(ctx, KindFile, path, resp)
	return resp, nil
}

// SubmitURL submits a URL and records the resulting tasks.
func (r *Recorder) SubmitURL(ctx context.Context, target string, fields map[string]string) (any, error) {
	resp, err := r.submitter.SubmitURL(ctx, target, fields)
	if err != nil {
		return nil, err
	}
	r.record(ctx, KindURL, target, resp)
	return resp, nil
}

func (r *Recorder) record(ctx context.Context, kind Kind, target string, resp any) {
	if r.journal == nil {
		return
	}
	if len(TaskIDs(resp)) == 0 {
		debug.Log(debug.Journal, "submission created no task", "kind", kind, "target", target)
		return
	}

	sub, err := NewSubmission(kind, target, resp)
	if err == nil {
		err = r.journal.Record(ctx, sub)
	}
	observability.JournalRecordsTotal.WithLabelValues(r.backend, observability.Outcome(err)).Inc()

	if err != nil {
		slog.Warn("failed to journal submission", "kind", kind, "target", target, "error", err)
		return
	}
	debug.Log(debug.Journal, "recorded submission", "id", sub.ID, "kind", kind, "task_ids", sub.TaskIDs)
}
