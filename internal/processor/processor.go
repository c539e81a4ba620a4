// Package processor runs the asynchronous half of the two-phase write: a
// captured signal enters New, one enrichment run moves it to Done, and any
// failure inside the run moves it to Parked instead. The capture response
// never waits on this package.
package processor

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/vector-m/signald/internal/classify"
	"github.com/vector-m/signald/internal/events"
	"github.com/vector-m/signald/internal/journal"
	"github.com/vector-m/signald/internal/notion"
	"github.com/vector-m/signald/internal/slack"
	"github.com/vector-m/signald/internal/summarize"
)

// maxErrorLen bounds the error text written into the summary field when a
// run is parked, so a long upstream error cannot overflow the store field.
const maxErrorLen = 500

// Enrichment triggers, recorded in the journal.
const (
	TriggerCapture    = "capture"
	TriggerRegenerate = "regenerate"
)

// Bus publishes lifecycle announcements. *events.Client satisfies it.
type Bus interface {
	Publish(subject string, data any) error
}

type Processor struct {
	store      *notion.Client
	summarizer *summarize.Summarizer
	notifier   *slack.Notifier  // nil — notifications disabled
	bus        Bus              // nil — no lifecycle announcements
	journal    *journal.Journal // nil — no audit log
	logger     *slog.Logger

	mu    sync.Mutex
	locks map[string]*idLock
}

// idLock serializes enrichment runs against one signal id. refs tracks
// waiters so released ids are pruned from the table.
type idLock struct {
	mu   sync.Mutex
	refs int
}

func New(store *notion.Client, s *summarize.Summarizer, n *slack.Notifier, bus Bus, j *journal.Journal, logger *slog.Logger) *Processor {
	return &Processor{
		store:      store,
		summarizer: s,
		notifier:   n,
		bus:        bus,
		journal:    j,
		logger:     logger,
		locks:      make(map[string]*idLock),
	}
}

// Result is what one successful enrichment run derived.
type Result struct {
	Summary        string
	NextBestAction string
	Priority       classify.Priority
}

// HandleEnrichRequested is the bus handler for signal.enrich.requested.
func (p *Processor) HandleEnrichRequested(subject string, data []byte) {
	var job events.EnrichRequested
	if err := json.Unmarshal(data, &job); err != nil {
		p.logger.Error("failed to parse enrichment job", "error", err)
		return
	}
	if job.SignalID == "" {
		p.logger.Error("enrichment job without signal id")
		return
	}
	p.Enrich(context.Background(), job)
}

// Dispatch runs the job on a detached goroutine. It is the in-process
// fallback used when no bus is configured, with the same contract as the
// bus dispatcher: the caller returns before enrichment starts.
func (p *Processor) Dispatch(job events.EnrichRequested) error {
	go p.Enrich(context.Background(), job)
	return nil
}

// Enrich executes one full enrichment run: summarize, classify, store
// update, then alert. All failures are contained here; on failure the record
// is parked with the error text, and if even that update fails the record
// stays New for operators to find.
func (p *Processor) Enrich(ctx context.Context, job events.EnrichRequested) {
	unlock := p.lock(job.SignalID)
	defer unlock()

	p.logger.Info("enriching signal", "signal_id", job.SignalID, "intent", job.Intent)
	start := time.Now()

	res, err := p.run(ctx, job.SignalID, job.Intent, job.Title, job.URL, job.Content)
	if err != nil {
		p.logger.Error("enrichment failed", "signal_id", job.SignalID, "error", err)
		parked := p.park(ctx, job.SignalID, err)
		status := string(notion.StatusParked)
		if !parked {
			status = string(notion.StatusNew)
		}
		p.record(ctx, job.SignalID, TriggerCapture, status, err, time.Since(start))
		if parked {
			p.announce(events.SubjectParked, job.SignalID, "")
		}
		return
	}

	p.record(ctx, job.SignalID, TriggerCapture, string(notion.StatusDone), nil, time.Since(start))
	p.logger.Info("signal enriched",
		"signal_id", job.SignalID,
		"priority", string(res.Priority),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if p.notifier != nil && classify.Urgent(res.Priority) {
		if err := p.notifier.Notify(ctx, job.Title, job.Intent, res.Priority, res.NextBestAction, job.SignalID); err != nil {
			p.logger.Error("notification failed", "signal_id", job.SignalID, "error", err)
		}
	}

	p.announce(events.SubjectEnriched, job.SignalID, string(res.Priority))
}

// Regenerate re-runs summarize/classify/update against the stored content and
// returns the fresh result synchronously. Concurrent regenerations of the
// same id are serialized. A failed regeneration leaves the record as it was.
func (p *Processor) Regenerate(ctx context.Context, id string) (*Result, error) {
	unlock := p.lock(id)
	defer unlock()

	rec, err := p.store.RetrieveSignal(ctx, id)
	if err != nil {
		return nil, err
	}
	content, err := p.store.RetrieveContent(ctx, id)
	if err != nil {
		return nil, err
	}

	p.logger.Info("regenerating signal", "signal_id", id, "intent", rec.Intent)
	start := time.Now()

	res, err := p.run(ctx, id, rec.Intent, rec.Title, rec.URL, content)
	if err != nil {
		p.record(ctx, id, TriggerRegenerate, "failed", err, time.Since(start))
		return nil, err
	}

	p.record(ctx, id, TriggerRegenerate, string(notion.StatusDone), nil, time.Since(start))
	p.announce(events.SubjectEnriched, id, string(res.Priority))
	return res, nil
}

// run is the shared enrichment core. The store update happens here, before
// any notification, so a Done record always carries its derived fields.
func (p *Processor) run(ctx context.Context, id, intent, title, url, content string) (*Result, error) {
	summary, err := p.summarizer.Summarize(ctx, intent, title, url, content)
	if err != nil {
		return nil, err
	}

	out := classify.Classify(intent)

	status := notion.StatusDone
	priority := string(out.Priority)
	err = p.store.UpdateSignal(ctx, id, notion.Update{
		Summary:        &summary,
		Status:         &status,
		NextBestAction: &out.NextBestAction,
		Priority:       &priority,
	})
	if err != nil {
		return nil, err
	}

	return &Result{Summary: summary, NextBestAction: out.NextBestAction, Priority: out.Priority}, nil
}

// park moves a failed signal to Parked, replacing the summary with bounded
// error text. Returns false when even the park update failed, in which case
// the record remains New.
func (p *Processor) park(ctx context.Context, id string, cause error) bool {
	msg := "Enrichment failed: " + cause.Error()
	if r := []rune(msg); len(r) > maxErrorLen {
		msg = string(r[:maxErrorLen])
	}
	status := notion.StatusParked
	if err := p.store.UpdateSignal(ctx, id, notion.Update{Summary: &msg, Status: &status}); err != nil {
		p.logger.Error("failed to park signal, record remains New", "signal_id", id, "error", err)
		return false
	}
	return true
}

func (p *Processor) record(ctx context.Context, id, trigger, status string, cause error, elapsed time.Duration) {
	if p.journal == nil {
		return
	}
	errText := ""
	if cause != nil {
		errText = cause.Error()
	}
	if err := p.journal.RecordEnrichment(ctx, id, trigger, status, errText, elapsed); err != nil {
		p.logger.Error("failed to journal enrichment", "signal_id", id, "error", err)
	}
}

func (p *Processor) announce(subject, id, priority string) {
	if p.bus == nil {
		return
	}
	payload := map[string]any{
		"signal_id": id,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if priority != "" {
		payload["priority"] = priority
	}
	if err := p.bus.Publish(subject, payload); err != nil {
		p.logger.Error("failed to publish lifecycle event", "subject", subject, "error", err)
	}
}

func (p *Processor) lock(id string) func() {
	p.mu.Lock()
	l, ok := p.locks[id]
	if !ok {
		l = &idLock{}
		p.locks[id] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, id)
		}
		p.mu.Unlock()
	}
}

