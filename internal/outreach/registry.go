package outreach

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/sells-group/wa-outreach/internal/model"
)

type runEntry struct {
	progress *model.BulkProgress
	done     chan struct{}
}

// Registry holds the progress of every run started in this process. Readers
// only receive clones.
type Registry struct {
	mu    sync.RWMutex
	runs  map[string]*runEntry
	order []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*runEntry)}
}

func (r *Registry) create(total int) string {
	id := "bulk_" + uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[id] = &runEntry{
		progress: &model.BulkProgress{
			ID:            id,
			TotalContacts: total,
			Status:        model.RunStatusRunning,
			Logs:          []string{},
		},
		done: make(chan struct{}),
	}
	r.order = append(r.order, id)
	return id
}

// update applies fn to the live progress record under the write lock.
func (r *Registry) update(id string, fn func(p *model.BulkProgress)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.runs[id]; ok {
		fn(e.progress)
	}
}

func (r *Registry) finish(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.runs[id]; ok {
		close(e.done)
	}
}

func (r *Registry) status(id string) model.RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.runs[id]; ok {
		return e.progress.Status
	}
	return ""
}

// Get returns a snapshot of run id.
func (r *Registry) Get(id string) (*model.BulkProgress, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.runs[id]
	if !ok {
		return nil, false
	}
	return e.progress.Clone(), true
}

// Done returns a channel closed when run id has finished.
func (r *Registry) Done(id string) (<-chan struct{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.runs[id]
	if !ok {
		return nil, false
	}
	return e.done, true
}

// Stop flips a running run to stopped. The worker notices at the top of its
// next iteration. It reports whether the run exists.
func (r *Registry) Stop(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.runs[id]
	if !ok {
		return false
	}
	if e.progress.Status == model.RunStatusRunning {
		e.progress.Status = model.RunStatusStopped
	}
	return true
}

// List returns snapshots of all runs, oldest first.
func (r *Registry) List() []*model.BulkProgress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.BulkProgress, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.runs[id].progress.Clone())
	}
	return out
}

// Active reports the ids of runs still running, sorted.
func (r *Registry) Active() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, e := range r.runs {
		if !e.progress.Status.Terminal() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
