// Package cloudsync keeps a shared remote document loosely consistent with the
// local state.
//
// Every successful local mutation re-arms a quiet-interval timer; when it fires
// the whole state is snapshotted and written remotely, so a burst of edits
// costs one write. Pull is explicit and replaces the local collections with the
// remote ones. Remote failures are logged and reported through Status; local
// state always stays as the user left it. The last push to complete decides
// the reported status.
package cloudsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"billing/internal/apperr"
	"billing/internal/logger"
	"billing/internal/state"
)

// DefaultDebounce is the quiet interval before a scheduled push fires.
const DefaultDebounce = 2 * time.Second

// DefaultFileName names the shared document.
const DefaultFileName = "tevolta_cloud_db.json"

const pushTimeout = 30 * time.Second

// Phase is the sync state shown to the user.
type Phase string

const (
	PhaseLocalOnly Phase = "local-only"
	PhasePending   Phase = "pending"
	PhaseSyncing   Phase = "syncing"
	PhaseSynced    Phase = "synced"
	PhaseFailed    Phase = "not-synced"
)

// Status describes the outcome of the most recent sync.
type Status struct {
	Phase      Phase
	LastError  string
	LastSynced time.Time
}

// PullResult describes what a pull did.
type PullResult struct {
	// Initialized is set when the remote document was empty and the local state was pushed instead.
	Initialized bool
	// Replaced lists the document keys that overwrote local collections.
	Replaced    []string
	LastUpdated string
}

// Options configures a Reconciler.
type Options struct {
	FileName string
	Debounce time.Duration
	Now      func() time.Time
}

// Reconciler schedules pushes and performs pulls against a DocumentStore.
type Reconciler struct {
	store    *state.Store
	remote   DocumentStore
	fileName string
	debounce time.Duration
	now      func() time.Time

	resolve singleflight.Group

	mu     sync.Mutex
	timer  *time.Timer
	gen    uint64 // Bumped per scheduled push; a firing timer only clears its own slot
	status Status
	closed bool
	wg     sync.WaitGroup

	log zerolog.Logger
}

// NewReconciler subscribes to store mutations. remote may be nil, in which case
// the workstation runs in local-only mode and every sync call fails with
// ErrSyncUnavailable.
func NewReconciler(store *state.Store, remote DocumentStore, opts Options) *Reconciler {
	if opts.FileName == "" {
		opts.FileName = DefaultFileName
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	r := &Reconciler{
		store:    store,
		remote:   remote,
		fileName: opts.FileName,
		debounce: opts.Debounce,
		now:      opts.Now,
		status:   Status{Phase: PhaseLocalOnly},
		log:      logger.WithComponent("cloudsync"),
	}
	store.Subscribe(r.MarkDirty)
	return r
}

// MarkDirty schedules a push after the quiet interval, replacing any push
// scheduled earlier. It does nothing in local-only mode.
func (r *Reconciler) MarkDirty() {
	if r.remote == nil || !r.store.Session().CloudEnabled {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.cancelScheduledLocked()
	r.gen++
	gen := r.gen
	r.wg.Add(1)
	r.timer = time.AfterFunc(r.debounce, func() { r.fire(gen) })
	r.status.Phase = PhasePending
}

// cancelScheduledLocked stops a scheduled push and reports whether one was pending.
func (r *Reconciler) cancelScheduledLocked() bool {
	if r.timer == nil {
		return false
	}
	stopped := r.timer.Stop()
	r.timer = nil
	if stopped {
		r.wg.Done()
	}
	return stopped
}

func (r *Reconciler) fire(gen uint64) {
	defer r.wg.Done()

	r.mu.Lock()
	if r.gen == gen {
		r.timer = nil
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := r.Push(ctx); err != nil {
		r.log.Warn().Err(err).Msg("Scheduled push failed, will retry on next change")
	}
}

// Push writes the whole local state to the remote document now.
func (r *Reconciler) Push(ctx context.Context) error {
	const op = "Push"

	if r.remote == nil {
		return apperr.New(op, apperr.ErrSyncUnavailable, "no remote store configured")
	}
	// Snapshot first so later mutations cannot tear the document.
	snap := r.store.Snapshot()
	if !snap.Session.CloudEnabled {
		return apperr.New(op, apperr.ErrSyncUnavailable, "cloud mode is off")
	}

	r.setPhase(PhaseSyncing)

	blob, err := NewDocument(snap, r.now()).Encode()
	if err != nil {
		return r.fail(op, err)
	}

	id, err := r.fileID(ctx, snap.Session.RemoteFileID)
	if err != nil {
		return r.fail(op, err)
	}
	err = r.remote.Write(ctx, id, blob)
	if errors.Is(err, ErrDocumentNotFound) {
		// Deleted remotely since the id was cached.
		r.log.Warn().Str("file_id", id).Msg("Cached remote document vanished, resolving again")
		if id, err = r.fileID(ctx, ""); err == nil {
			err = r.remote.Write(ctx, id, blob)
		}
	}
	if err != nil {
		return r.fail(op, err)
	}

	r.succeed()
	r.log.Info().Str("file_id", id).Int("bytes", len(blob)).Msg("Pushed state to remote document")
	return nil
}

// Pull replaces local collections with the remote document and turns cloud
// mode on. An empty remote document is initialised from local state instead.
func (r *Reconciler) Pull(ctx context.Context) (PullResult, error) {
	const op = "Pull"

	if r.remote == nil {
		return PullResult{}, apperr.New(op, apperr.ErrSyncUnavailable, "no remote store configured")
	}

	r.setPhase(PhaseSyncing)

	id, err := r.fileID(ctx, r.store.Session().RemoteFileID)
	if err != nil {
		return PullResult{}, r.fail(op, err)
	}
	blob, err := r.remote.Read(ctx, id)
	if errors.Is(err, ErrDocumentNotFound) {
		if id, err = r.fileID(ctx, ""); err == nil {
			blob, err = r.remote.Read(ctx, id)
		}
	}
	if err != nil && !errors.Is(err, ErrDocumentNotFound) {
		return PullResult{}, r.fail(op, err)
	}

	if len(blob) == 0 {
		if err := r.SetCloudEnabled(true); err != nil {
			return PullResult{}, r.fail(op, err)
		}
		r.log.Info().Msg("Remote document is empty, uploading local state")
		if err := r.Push(ctx); err != nil {
			return PullResult{}, err
		}
		return PullResult{Initialized: true}, nil
	}

	doc, err := DecodeDocument(blob)
	if err != nil {
		return PullResult{}, r.fail(op, err)
	}

	var res PullResult
	err = r.store.Replace(op, func(st *state.State) error {
		res.Replaced = doc.ApplyTo(st)
		st.Session.CloudEnabled = true
		return nil
	})
	if err != nil {
		return PullResult{}, r.fail(op, err)
	}
	res.LastUpdated = doc.LastUpdated

	r.succeed()
	r.log.Info().
		Strs("replaced", res.Replaced).
		Str("remote_updated", doc.LastUpdated).
		Msg("Pulled remote document")
	return res, nil
}

// SetCloudEnabled switches between cloud and local-only mode. Turning cloud
// mode off drops any scheduled push.
func (r *Reconciler) SetCloudEnabled(enabled bool) error {
	if err := r.store.UpdateSession(func(s *state.Session) { s.CloudEnabled = enabled }); err != nil {
		return err
	}
	if !enabled {
		r.mu.Lock()
		r.cancelScheduledLocked()
		r.status = Status{Phase: PhaseLocalOnly}
		r.mu.Unlock()
	}
	return nil
}

// Status returns the current sync status.
func (r *Reconciler) Status() Status {
	cloud := r.remote != nil && r.store.Session().CloudEnabled

	r.mu.Lock()
	defer r.mu.Unlock()
	if !cloud {
		return Status{Phase: PhaseLocalOnly, LastError: r.status.LastError, LastSynced: r.status.LastSynced}
	}
	return r.status
}

// Flush runs a scheduled push immediately. It returns nil when nothing was scheduled.
func (r *Reconciler) Flush(ctx context.Context) error {
	r.mu.Lock()
	pending := r.cancelScheduledLocked()
	r.mu.Unlock()

	if !pending {
		return nil
	}
	return r.Push(ctx)
}

// Close flushes a scheduled push and waits for running pushes to finish.
func (r *Reconciler) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	pending := r.cancelScheduledLocked()
	r.mu.Unlock()

	var err error
	if pending {
		err = r.Push(ctx)
	}
	r.wg.Wait()
	return err
}

// fileID returns the cached remote id or resolves it once, even when several
// pushes ask at the same time, and caches it in the session.
func (r *Reconciler) fileID(ctx context.Context, cached string) (string, error) {
	if cached != "" {
		return cached, nil
	}
	v, err, _ := r.resolve.Do(r.fileName, func() (interface{}, error) {
		id, err := r.remote.FindOrCreate(ctx, r.fileName)
		if err != nil {
			return "", err
		}
		if err := r.store.UpdateSession(func(s *state.Session) { s.RemoteFileID = id }); err != nil {
			return "", err
		}
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *Reconciler) setPhase(p Phase) {
	r.mu.Lock()
	r.status.Phase = p
	r.mu.Unlock()
}

func (r *Reconciler) succeed() {
	r.mu.Lock()
	r.status = Status{Phase: PhaseSynced, LastSynced: r.now()}
	r.mu.Unlock()
}

func (r *Reconciler) fail(op string, err error) error {
	r.mu.Lock()
	r.status.Phase = PhaseFailed
	r.status.LastError = err.Error()
	r.mu.Unlock()

	r.log.Error().Err(err).Str("op", op).Msg("Remote sync failed")
	return apperr.New(op, apperr.ErrSyncFailed, err.Error())
}
