package tui

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

type jobKind string

type jobStatus string

const (
	jobKindSearch     jobKind = "search"
	jobKindStatistics jobKind = "statistics"
	jobKindChat       jobKind = "chat"
	jobKindSummarize  jobKind = "summarize"
	jobKindSave       jobKind = "save"
	jobKindMistake    jobKind = "mistake"
	jobKindMistakes   jobKind = "mistakes"
	jobKindOverview   jobKind = "overview"
)

const (
	jobStatusRunning   jobStatus = "running"
	jobStatusSucceeded jobStatus = "succeeded"
	jobStatusFailed    jobStatus = "failed"
)

type jobSnapshot struct {
	ID          string
	Kind        jobKind
	Status      jobStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Err         string
	Duration    time.Duration
}

type jobSignalMsg struct {
	Snapshot jobSnapshot
}

type jobResultEnvelope struct {
	Snapshot jobSnapshot
	Payload  tea.Msg
}

type jobRunner func(context.Context) (tea.Msg, error)

// jobBus assigns every backend call an ID and wraps its outcome in an
// envelope so the model can track what is in flight.
type jobBus struct {
	counter int64
	log     *zap.Logger
}

func newJobBus(log *zap.Logger) *jobBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &jobBus{log: log}
}

func (b *jobBus) nextID(kind jobKind) string {
	idx := atomic.AddInt64(&b.counter, 1)
	return fmt.Sprintf("%s-%d", kind, idx)
}

func (b *jobBus) Start(kind jobKind, runner jobRunner) tea.Cmd {
	id := b.nextID(kind)
	started := time.Now()
	startSnapshot := jobSnapshot{ID: id, Kind: kind, Status: jobStatusRunning, StartedAt: started}
	startCmd := func() tea.Msg {
		return jobSignalMsg{Snapshot: startSnapshot}
	}

	runCmd := func() tea.Msg {
		payload, err := runner(context.Background())
		completed := time.Now()
		snapshot := jobSnapshot{
			ID:          id,
			Kind:        kind,
			StartedAt:   started,
			CompletedAt: completed,
			Duration:    completed.Sub(started),
		}
		if err != nil {
			snapshot.Status = jobStatusFailed
			snapshot.Err = err.Error()
			b.log.Warn("job failed",
				zap.String("job", id),
				zap.Duration("duration", snapshot.Duration),
				zap.Error(err),
			)
		} else {
			snapshot.Status = jobStatusSucceeded
			b.log.Debug("job finished",
				zap.String("job", id),
				zap.Duration("duration", snapshot.Duration),
			)
		}
		return jobResultEnvelope{Snapshot: snapshot, Payload: payload}
	}

	return tea.Sequence(startCmd, runCmd)
}
