package sinks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/hollydata/filmcrawl/internal/progress"
)

// WriterSink prints human-readable status lines to an io.Writer, typically
// stdout. It is the CLI's per-title progress channel.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink wraps the writer.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Consume renders each event as one status line.
func (s *WriterSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			fmt.Fprintf(s.w, "Crawling %s (%s)...\n", evt.Source, evt.Note)
		case progress.StageTitleDone:
			if evt.Note != "" {
				fmt.Fprintf(s.w, "%s: %s (%s) - %s\n", evt.Title, evt.Outcome, evt.Source, evt.Note)
			} else {
				fmt.Fprintf(s.w, "%s: %s (%s)\n", evt.Title, evt.Outcome, evt.Source)
			}
		case progress.StageRunDone:
			fmt.Fprintf(s.w, "%s\n", evt.Note)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *WriterSink) Close(context.Context) error {
	return nil
}
