package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tildaslashalef/docsync/internal/loggy"
	"github.com/tildaslashalef/docsync/internal/store"
	"github.com/tildaslashalef/docsync/internal/ulid"
)

// poller re-checks processing documents on a fixed interval. It runs only while
// the engine holds at least one processing document; reconcilePoller starts and
// stops it on that transition.
type poller struct {
	engine      *Engine
	interval    time.Duration
	concurrency int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newPoller(e *Engine, interval time.Duration, concurrency int) *poller {
	return &poller{
		engine:      e,
		interval:    interval,
		concurrency: concurrency,
	}
}

func (p *poller) running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done != nil
}

// reconcilePoller starts or stops the poller to match the processing count.
// Must not be called with e.mu held.
func (e *Engine) reconcilePoller() {
	p := e.poller

	p.mu.Lock()
	e.mu.Lock()
	active := e.active
	ctx := e.ctx
	count := len(e.processingIDsLocked())
	e.mu.Unlock()

	if active && count > 0 {
		if p.done == nil {
			p.startLocked(ctx)
			e.logger.Debug("Status poller started", "processing", count)
		}
		p.mu.Unlock()
		return
	}

	// Detach under the lock so a concurrent reconcile that needs a poller starts a new one
	cancel, done := p.detachLocked()
	p.mu.Unlock()

	if waitStopped(cancel, done) {
		e.logger.Debug("Status poller stopped")
	}
}

func (p *poller) startLocked(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	go p.run(ctx, done)
}

func (p *poller) detachLocked() (context.CancelFunc, chan struct{}) {
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	return cancel, done
}

// stop cancels the running loop and waits for it to exit
func (p *poller) stop() bool {
	p.mu.Lock()
	cancel, done := p.detachLocked()
	p.mu.Unlock()

	return waitStopped(cancel, done)
}

func waitStopped(cancel context.CancelFunc, done chan struct{}) bool {
	if done == nil {
		return false
	}
	cancel()
	<-done
	return true
}

// exitIfIdle clears the handle when nothing is processing. The check happens
// under p.mu so a concurrent reconcile either sees the loop running or starts a new one.
func (p *poller) exitIfIdle(done chan struct{}) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done != done {
		// Stopped externally
		return true
	}

	p.engine.mu.Lock()
	idle := len(p.engine.processingIDsLocked()) == 0 || !p.engine.active
	p.engine.mu.Unlock()

	if idle {
		p.cancel()
		p.cancel, p.done = nil, nil
	}
	return idle
}

func (p *poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if p.exitIfIdle(done) {
			p.engine.logger.Debug("Status poller idle")
			return
		}

		p.engine.mu.Lock()
		ids := p.engine.processingIDsLocked()
		p.engine.mu.Unlock()

		roundCtx := loggy.WithRequestID(ctx, ulid.RequestID())
		updates := p.pollRound(roundCtx, ids)
		if ctx.Err() != nil {
			return
		}

		if p.engine.mergeStatuses(updates) {
			p.engine.publish()
		}

		if p.exitIfIdle(done) {
			p.engine.logger.Debug("Status poller idle")
			return
		}
	}
}

// pollRound requests the status of every id in parallel. Failed requests
// produce no update and do not affect the others.
func (p *poller) pollRound(ctx context.Context, ids []string) map[string]store.DocumentStatus {
	var (
		mu      sync.Mutex
		updates = make(map[string]store.DocumentStatus, len(ids))
		failed  int
	)

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for _, id := range ids {
		g.Go(func() error {
			status, err := p.engine.store.GetDocumentStatus(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				p.engine.logger.Debug("Status check failed", "document_id", id, "error", err)
				return nil
			}
			updates[id] = *status
			return nil
		})
	}
	_ = g.Wait()

	p.engine.logger.Debug("Status poll round finished",
		"documents", len(ids),
		"updated", len(updates),
		"failed", failed)

	return updates
}

// mergeStatuses applies status deltas. Only status and updated_at are replaced,
// and only for documents whose status differs. Returns whether anything changed.
func (e *Engine) mergeStatuses(updates map[string]store.DocumentStatus) bool {
	if len(updates) == 0 {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active {
		return false
	}

	var merged []store.Document
	for i, d := range e.documents {
		u, ok := updates[d.ExternalID]
		if !ok || u.Status == "" || u.Status == d.Status() {
			continue
		}

		if merged == nil {
			// Copy on write so snapshots handed out earlier stay intact
			merged = append([]store.Document(nil), e.documents...)
		}
		merged[i] = applyStatus(d, u)

		if e.detail != nil && e.detail.ExternalID == d.ExternalID {
			detail := applyStatus(*e.detail, u)
			e.detail = &detail
		}
	}

	if merged == nil {
		return false
	}
	e.documents = merged
	return true
}

func applyStatus(d store.Document, u store.DocumentStatus) store.Document {
	d = d.Clone()
	if d.SystemMetadata == nil {
		d.SystemMetadata = map[string]any{}
	}
	d.SystemMetadata[store.KeyStatus] = u.Status
	if u.UpdatedAt != "" {
		d.SystemMetadata[store.KeyUpdatedAt] = u.UpdatedAt
	}
	return d
}
