// Package progress tracks the set of completed topics for one course view.
//
// The local set is authoritative once loaded. Toggles update it immediately
// and push the whole set to the service in the background; a failed push is
// logged and never rolled back.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"tutorly/internal/providers"
	"tutorly/internal/providers/tutorly"
)

type State int

const (
	Loading State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "loading"
}

var (
	ErrNotReady     = errors.New("progress: not loaded yet")
	ErrInvalidTopic = errors.New("progress: invalid topic index")
)

type Tracker struct {
	courseID int
	api      providers.ProgressProvider
	log      *log.Logger

	// OnUnauthorized runs when the service rejects the credential during a
	// load or a save.
	OnUnauthorized func()

	mu     sync.Mutex
	state  State
	done   map[int]struct{}
	closed bool

	saves sync.WaitGroup
}

func New(courseID int, api providers.ProgressProvider) *Tracker {
	return &Tracker{
		courseID: courseID,
		api:      api,
		log:      log.Default(),
		done:     map[int]struct{}{},
	}
}

// SetLogger replaces the destination for progress warnings.
func (t *Tracker) SetLogger(l *log.Logger) { t.log = l }

// Load fetches the stored set once. Any failure leaves an empty set and the
// tracker still becomes Ready. Responses arriving after Close are dropped.
func (t *Tracker) Load(ctx context.Context) {
	completed, err := t.api.GetProgress(ctx, t.courseID)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		t.log.Printf("progress: course %d: dropping load result for closed view", t.courseID)
		return
	}
	t.done = map[int]struct{}{}
	if err == nil {
		for _, i := range completed {
			if i >= 0 {
				t.done[i] = struct{}{}
			}
		}
	}
	t.state = Ready
	t.mu.Unlock()

	if err != nil {
		t.log.Printf("WARN: progress: course %d: load failed: %v", t.courseID, err)
		t.unauthorized(err)
	}
}

// Toggle flips topic i and starts persisting the resulting set. It returns
// the new sorted set.
func (t *Tracker) Toggle(ctx context.Context, i int) ([]int, error) {
	if i < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopic, i)
	}

	t.mu.Lock()
	if t.state != Ready {
		t.mu.Unlock()
		return nil, ErrNotReady
	}
	if _, ok := t.done[i]; ok {
		delete(t.done, i)
	} else {
		t.done[i] = struct{}{}
	}
	snapshot := t.sortedLocked()
	t.mu.Unlock()

	t.saves.Add(1)
	go t.save(context.WithoutCancel(ctx), snapshot)

	return append([]int(nil), snapshot...), nil
}

func (t *Tracker) save(ctx context.Context, completed []int) {
	defer t.saves.Done()
	if err := t.api.SaveProgress(ctx, t.courseID, completed); err != nil {
		t.log.Printf("WARN: progress: course %d: save failed, keeping local state: %v", t.courseID, err)
		t.unauthorized(err)
	}
}

func (t *Tracker) unauthorized(err error) {
	if t.OnUnauthorized != nil && (tutorly.IsUnauthorized(err) || errors.Is(err, tutorly.ErrNoCredential)) {
		t.OnUnauthorized()
	}
}

// Wait blocks until every save started so far has finished.
func (t *Tracker) Wait() { t.saves.Wait() }

// Close marks the owning view as gone. Pending saves still run.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) Completed() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sortedLocked()
}

func (t *Tracker) IsCompleted(i int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.done[i]
	return ok
}

func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.done)
}

// Summary renders "<completed>/<total>".
func (t *Tracker) Summary(total int) string {
	return fmt.Sprintf("%d/%d", t.Count(), total)
}

func (t *Tracker) sortedLocked() []int {
	out := make([]int, 0, len(t.done))
	for i := range t.done {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
