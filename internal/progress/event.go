// Package progress defines the event structures emitted by crawl runs and
// the sink interface that consumes them. Sinks are an optional side channel:
// their presence or absence never changes a crawl outcome.
package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart  Stage = "RUN_START"
	StageRunDone   Stage = "RUN_DONE"
	StageTitleDone Stage = "TITLE_DONE"
)

// Outcome classifies one entity's crawl attempt. The three values partition
// every attempt: counts per outcome always sum to the number of inputs.
type Outcome string

// Supported outcomes.
const (
	OutcomeSucceeded     Outcome = "succeeded"
	OutcomeFailed        Outcome = "failed"
	OutcomeAlreadyExists Outcome = "already exists"
)

// Event captures a single milestone of a crawl run.
type Event struct {
	// RunID uniquely identifies one crawl batch.
	RunID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Source is the profile source being crawled.
	Source string
	// Title is the film name, set on title-level events.
	Title string
	// Outcome classifies finished title attempts.
	Outcome Outcome
	// Dur captures execution latency for title completions and run totals.
	Dur time.Duration
	// Note lets emitters attach low-volume context such as error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageTitleDone:
		if e.Title == "" {
			return errors.New("title done requires a title")
		}
		if e.Outcome == "" {
			return errors.New("title done requires an outcome")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// Sink consumes progress event batches. Implementations must be safe for
// concurrent use.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Multi fans one batch out to several sinks, returning the first error.
type Multi []Sink

// Consume implements Sink.
func (m Multi) Consume(ctx context.Context, batch []Event) error {
	for _, sink := range m {
		if err := sink.Consume(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

// Close implements Sink.
func (m Multi) Close(ctx context.Context) error {
	var firstErr error
	for _, sink := range m {
		if err := sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
