package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/portfolio-import/internal/importer"
	"github.com/JonMunkholm/portfolio-import/internal/logging"
	"github.com/JonMunkholm/portfolio-import/internal/validate"
)

type activeImport struct {
	ID       string
	FileName string
	Cancel   context.CancelFunc
	Done     chan struct{}

	mu        sync.Mutex
	status    ImportStatus
	result    *importer.Result
	err       error
	listeners []chan ImportStatus
	closed    bool
}

// StartImport validates a session and, if it can proceed, imports it in the
// background. It returns the import id immediately; follow it with
// SubscribeProgress, ImportProgress or ImportResult.
//
// The import outlives ctx's cancellation but keeps its values, so request
// ids still reach the logs.
func (s *Service) StartImport(ctx context.Context, req ImportRequest) (string, validate.ImportValidationResult, error) {
	sess, res, err := s.prepare(ctx, req)
	if err != nil {
		return "", res, err
	}

	id := uuid.NewString()
	importCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ImportTimeout)

	imp := &activeImport{
		ID:       id,
		FileName: sess.FileName,
		Cancel:   cancel,
		Done:     make(chan struct{}),
		status: ImportStatus{
			Progress: importer.Progress{
				ImportID:  id,
				Phase:     PhaseQueued,
				TotalRows: res.ValidRows,
			},
			FileName: sess.FileName,
		},
	}

	s.mu.Lock()
	s.imports[id] = imp
	s.mu.Unlock()

	logging.WithFields(ctx, "import_id", id, "session_id", sess.ID).Info("import queued", "rows", res.ValidRows)

	go s.runImport(importCtx, imp, res, req.options())

	return id, res, nil
}

func (s *Service) runImport(ctx context.Context, imp *activeImport, res validate.ImportValidationResult, opts importer.Options) {
	defer func() {
		imp.Cancel()
		imp.closeListeners()
		close(imp.Done)
		s.forgetImport(imp.ID, ResultRetention)
	}()

	opts.Progress = imp.update
	result, err := s.execute(ctx, imp.ID, imp.FileName, res, opts)
	imp.finish(result, err)
}

// update records executor progress and fans it out to listeners.
func (imp *activeImport) update(p importer.Progress) {
	imp.mu.Lock()
	defer imp.mu.Unlock()

	imp.status.Progress = p
	imp.notifyLocked(false)
}

func (imp *activeImport) finish(result *importer.Result, err error) {
	imp.mu.Lock()
	defer imp.mu.Unlock()

	imp.result = result
	imp.err = err

	switch {
	case err == nil:
		imp.status.Phase = importer.PhaseComplete
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		imp.status.Phase = importer.PhaseCancelled
		imp.status.Error = MapError(err).Message
	default:
		imp.status.Phase = PhaseFailed
		imp.status.Error = MapError(err).Message
	}
	imp.notifyLocked(true)
}

// notifyLocked sends the current status to every listener. Slow listeners
// miss progress updates rather than block the import. A final status evicts
// the oldest queued update when a buffer is full, so it is always delivered.
func (imp *activeImport) notifyLocked(final bool) {
	for _, ch := range imp.listeners {
		select {
		case ch <- imp.status:
			continue
		default:
		}
		if !final {
			continue
		}

		// Only this goroutine sends, under mu, so the freed slot stays free.
		select {
		case <-ch:
		default:
		}
		ch <- imp.status
	}
}

func (imp *activeImport) closeListeners() {
	imp.mu.Lock()
	defer imp.mu.Unlock()

	for _, ch := range imp.listeners {
		close(ch)
	}
	imp.listeners = nil
	imp.closed = true
}

func (s *Service) forgetImport(id string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.imports, id)
		s.mu.Unlock()
	})
}

func (s *Service) lookupImport(id string) (*activeImport, error) {
	s.mu.RLock()
	imp, ok := s.imports[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrImportNotFound, id)
	}
	return imp, nil
}

// SubscribeProgress returns a channel of status updates that is closed when
// the import ends. The current status is sent first.
func (s *Service) SubscribeProgress(id string) (<-chan ImportStatus, error) {
	imp, err := s.lookupImport(id)
	if err != nil {
		return nil, err
	}

	ch := make(chan ImportStatus, 10)

	imp.mu.Lock()
	defer imp.mu.Unlock()

	ch <- imp.status
	if imp.closed {
		close(ch)
		return ch, nil
	}
	imp.listeners = append(imp.listeners, ch)

	return ch, nil
}

// ImportProgress returns the current status without blocking.
func (s *Service) ImportProgress(id string) (ImportStatus, error) {
	imp, err := s.lookupImport(id)
	if err != nil {
		return ImportStatus{}, err
	}

	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.status, nil
}

// CancelImport stops a running import. Its writes are rolled back.
func (s *Service) CancelImport(id string) error {
	imp, err := s.lookupImport(id)
	if err != nil {
		return err
	}

	imp.Cancel()
	return nil
}

// ImportResult waits for the import to finish and returns its result and
// error. A cancelled import returns its partial result with the error.
func (s *Service) ImportResult(ctx context.Context, id string) (*importer.Result, error) {
	imp, err := s.lookupImport(id)
	if err != nil {
		return nil, err
	}

	select {
	case <-imp.Done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.result, imp.err
}
