package synth

import (
	"time"

	"github.com/sirupsen/logrus"

	"voicegen/internal/speech/tts"
)

// Outcome is the result of one synthesis attempt or job.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeRetry     Outcome = "retry"
	OutcomeFatal     Outcome = "fatal"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeStarted   Outcome = "started"
)

// AttemptEvent describes one call to the voice service for one chunk.
type AttemptEvent struct {
	JobID       string
	ChunkIndex  int
	TotalChunks int
	Attempt     int // 1-based
	Outcome     Outcome
	Kind        tts.ErrorKind
	Delay       time.Duration // wait before the next attempt, for OutcomeRetry
	Err         error
	Time        time.Time
}

// JobEvent marks the start and end of a synthesis job.
type JobEvent struct {
	JobID       string
	Outcome     Outcome
	TotalChunks int
	ChunkIndex  int // failing chunk, or -1
	Bytes       int
	Err         error
	Time        time.Time
}

// EventLogger receives structured events from the pipeline. Implementations
// must not block.
type EventLogger interface {
	LogAttempt(AttemptEvent)
	LogJob(JobEvent)
}

type nopLogger struct{}

func (nopLogger) LogAttempt(AttemptEvent) {}
func (nopLogger) LogJob(JobEvent)         {}

// NopLogger discards all events.
func NopLogger() EventLogger { return nopLogger{} }

type multiLogger []EventLogger

func (m multiLogger) LogAttempt(ev AttemptEvent) {
	for _, l := range m {
		l.LogAttempt(ev)
	}
}

func (m multiLogger) LogJob(ev JobEvent) {
	for _, l := range m {
		l.LogJob(ev)
	}
}

// MultiLogger fans events out to every logger in order.
func MultiLogger(loggers ...EventLogger) EventLogger {
	return multiLogger(loggers)
}

type logrusLogger struct {
	log logrus.FieldLogger
}

// NewLogrusLogger writes events as logrus entries.
func NewLogrusLogger(log logrus.FieldLogger) EventLogger {
	return &logrusLogger{log: log}
}

func (l *logrusLogger) LogAttempt(ev AttemptEvent) {
	entry := l.log.WithFields(logrus.Fields{
		"job_id":       ev.JobID,
		"chunk":        ev.ChunkIndex,
		"total_chunks": ev.TotalChunks,
		"attempt":      ev.Attempt,
		"outcome":      ev.Outcome,
		"timestamp":    ev.Time.Format(time.RFC3339Nano),
	})
	if ev.Err != nil {
		entry = entry.WithError(ev.Err).WithField("kind", ev.Kind.String())
	}

	switch ev.Outcome {
	case OutcomeSuccess:
		entry.Debug("chunk synthesized")
	case OutcomeRetry:
		entry.WithField("delay", ev.Delay.String()).Warn("chunk synthesis failed, retrying")
	case OutcomeCancelled:
		entry.Warn("chunk synthesis cancelled")
	default:
		entry.Error("chunk synthesis failed")
	}
}

func (l *logrusLogger) LogJob(ev JobEvent) {
	entry := l.log.WithFields(logrus.Fields{
		"job_id":       ev.JobID,
		"outcome":      ev.Outcome,
		"total_chunks": ev.TotalChunks,
		"timestamp":    ev.Time.Format(time.RFC3339Nano),
	})

	switch ev.Outcome {
	case OutcomeStarted:
		entry.Info("synthesis job started")
	case OutcomeSuccess:
		entry.WithField("bytes", ev.Bytes).Info("synthesis job finished")
	default:
		entry.WithError(ev.Err).WithField("chunk", ev.ChunkIndex).Error("synthesis job failed")
	}
}
