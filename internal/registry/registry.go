// Package registry tracks remote runners that have registered as
// executors for one or more experiments, so the dispatcher can fan a
// batch out across every remote willing to run a given experiment
// (§4.6). It is a Go reshaping of the source's Registry/Registry::Remote:
// the stable-iterator std::list<Remote> plus std::multimap<name, iterator>
// becomes a monotonically increasing uint64 handle plus two maps, since Go
// has no container with std::list's "iterator survives insertion and
// removal of other elements" guarantee.
package registry

import (
	"sync"

	"github.com/royalerun/royale/internal/protocol"
)

// Handle identifies one registered remote for the lifetime of its
// connection. Handles are never reused.
type Handle uint64

// Remote is one registered runner: its connection and the experiment
// names it announced via a Register message.
type Remote struct {
	Handle      Handle
	Conn        *protocol.Conn
	Experiments []string
}

// Registry is a concurrency-safe collection of registered Remotes,
// indexed both by Handle and by experiment name.
type Registry struct {
	mu           sync.RWMutex
	next         Handle
	remotes      map[Handle]*Remote
	byExperiment map[string][]Handle
}

func New() *Registry {
	return &Registry{
		remotes:      map[Handle]*Remote{},
		byExperiment: map[string][]Handle{},
	}
}

// RegisterRemote adds a remote and indexes it under each of its
// announced experiment names, mirroring Registry::register_remote.
func (r *Registry) RegisterRemote(conn *protocol.Conn, experiments []string) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	h := r.next
	r.remotes[h] = &Remote{Handle: h, Conn: conn, Experiments: experiments}
	for _, name := range experiments {
		r.byExperiment[name] = append(r.byExperiment[name], h)
	}
	return h
}

// Lookup returns every remote registered for the given experiment name,
// mirroring Registry::lookup's multimap range.
func (r *Registry) Lookup(experimentName string) []*Remote {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles := r.byExperiment[experimentName]
	out := make([]*Remote, 0, len(handles))
	for _, h := range handles {
		if rem, ok := r.remotes[h]; ok {
			out = append(out, rem)
		}
	}
	return out
}

// Remove deletes a single remote and every experiment-name index entry
// pointing at it, mirroring Registry::remove(remotes_iterator_type).
func (r *Registry) Remove(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(h)
}

// RemoveBulk removes several handles at once, mirroring the
// std::vector<remotes_iterator_type> overload used after a RunBatch fan-out
// to prune remotes that failed mid-batch.
func (r *Registry) RemoveBulk(handles []Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range handles {
		r.removeLocked(h)
	}
}

func (r *Registry) removeLocked(h Handle) {
	rem, ok := r.remotes[h]
	if !ok {
		return
	}
	delete(r.remotes, h)
	for _, name := range rem.Experiments {
		handles := r.byExperiment[name]
		for i, candidate := range handles {
			if candidate == h {
				r.byExperiment[name] = append(handles[:i], handles[i+1:]...)
				break
			}
		}
		if len(r.byExperiment[name]) == 0 {
			delete(r.byExperiment, name)
		}
	}
}

// Len reports the number of currently registered remotes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.remotes)
}
