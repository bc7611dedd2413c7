// Package notify is the fire-and-forget notification surface. Core logic
// never reads anything back from it.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Notifier interface {
	Success(ctx context.Context, msg string)
	Failure(ctx context.Context, op string, err error)
}

type Nop struct{}

func (Nop) Success(context.Context, string)        {}
func (Nop) Failure(context.Context, string, error) {}

// LogNotifier writes notifications to the structured logger.
type LogNotifier struct{}

func (LogNotifier) Success(ctx context.Context, msg string) {
	logutil.GetLogger(ctx).Info("notify success", zap.String("msg", msg))
}

func (LogNotifier) Failure(ctx context.Context, op string, err error) {
	logutil.GetLogger(ctx).Warn("notify failure", zap.String("op", op), zap.Error(err))
}

var (
	okLabel   = color.New(color.FgGreen, color.Bold)
	failLabel = color.New(color.FgRed, color.Bold)
)

// Console prints notifications for terminal users. Labels are colored only
// when Color is set and the terminal supports it.
type Console struct {
	Out   io.Writer
	Err   io.Writer
	Color bool
}

func (c Console) Success(_ context.Context, msg string) {
	if c.Out != nil {
		_, _ = fmt.Fprintf(c.Out, "%s %s\n", c.label(okLabel, "ok:"), msg)
	}
}

func (c Console) Failure(_ context.Context, op string, err error) {
	if c.Err != nil {
		_, _ = fmt.Fprintf(c.Err, "%s %s: %v\n", c.label(failLabel, "failed:"), op, err)
	}
}

func (c Console) label(col *color.Color, text string) string {
	if !c.Color {
		return text
	}
	return col.Sprint(text)
}

type Event struct {
	OK  bool
	Op  string
	Msg string
	Err error
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Success(_ context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{OK: true, Msg: msg})
}

func (r *Recorder) Failure(_ context.Context, op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Op: op, Err: err})
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Failures() []Event {
	out := make([]Event, 0)
	for _, ev := range r.Events() {
		if !ev.OK {
			out = append(out, ev)
		}
	}
	return out
}
