package notifier

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry holds the configured channels, keyed by name.
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
}

func NewRegistry() *Registry {
	return &Registry{notifiers: make(map[string]Notifier)}
}

// Register adds n. Names are unique.
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.notifiers[name]; exists {
		return fmt.Errorf("notifier %s already registered", name)
	}
	r.notifiers[name] = n
	return nil
}

func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.notifiers[name]
	if !ok {
		return nil, fmt.Errorf("notifier %s not found", name)
	}
	return n, nil
}

// GetAll returns every notifier sorted by name.
func (r *Registry) GetAll() []Notifier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Notifier, 0, len(r.notifiers))
	for _, n := range r.notifiers {
		all = append(all, n)
	}
	slices.SortFunc(all, func(a, b Notifier) int { return strings.Compare(a.Name(), b.Name()) })
	return all
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notifiers)
}

// Result is the outcome of one delivery.
type Result struct {
	Notifier string
	Err      error
}

// NotifyAll sends event to every channel concurrently and waits for all of
// them. One failing channel does not stop the others. Results are sorted by
// notifier name.
func (r *Registry) NotifyAll(ctx context.Context, event Event) []Result {
	all := r.GetAll()
	results := make([]Result, len(all))

	var wg sync.WaitGroup
	for i, n := range all {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = Result{Notifier: n.Name(), Err: n.Send(ctx, event)}
		}()
	}
	wg.Wait()
	return results
}
