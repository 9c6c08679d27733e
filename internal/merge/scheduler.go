package merge

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"munin/internal/archive"
	"munin/internal/journal"
)

// Clock lets tests drive day boundaries without waiting for them.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// UserState tracks where a user's timer stands in the scheduler.
type UserState int

const (
	StateIdle UserState = iota
	StateWaiting
	StatePublishing
)

// Scheduler owns the background loop that merges each allow-listed user's
// prior-day journals after their local day boundary. It polls at a fixed
// short interval and compares dates instead of arming one-shot timers, so
// process suspension and clock drift only delay a merge until the next tick,
// and a boundary missed while the process was down is caught on the first
// tick after boot.
type Scheduler struct {
	Store     *journal.Store
	Publisher *Publisher

	// Users are the allow-listed user ids driven by the loop.
	Users []uint64

	// Interval is the tick period. Zero means one minute.
	Interval time.Duration

	// Clock defaults to the system clock; tests inject a fake.
	Clock Clock

	// Janitor, when set, runs once per user after a boundary merge
	// completes (retention sweep hook).
	Janitor func(ctx context.Context, userID uint64)

	mu    sync.Mutex
	state map[uint64]UserState

	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

// Start arms the loop. Every user moves Idle -> Waiting; the loop runs until
// the context is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.state == nil {
		s.state = make(map[uint64]UserState, len(s.Users))
	}
	for _, u := range s.Users {
		s.state[u] = StateWaiting
	}
	s.mu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
}

// Stop cancels the loop and waits for in-flight merge attempts to settle.
// A cancelled archive call fails the attempt; the journal lands in
// MERGE_FAILED and the boot recovery pass covers anything torn mid-write.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick launches one merge pass per user not already publishing. Mutual
// exclusion per journal ultimately rests on the store's compare-and-swap, so
// the in-process state map is bookkeeping, not the safety mechanism.
func (s *Scheduler) tick(ctx context.Context) {
	for _, userID := range s.Users {
		s.mu.Lock()
		if s.state == nil {
			s.state = make(map[uint64]UserState, len(s.Users))
		}
		if s.state[userID] == StatePublishing {
			s.mu.Unlock()
			continue
		}
		s.state[userID] = StatePublishing
		s.mu.Unlock()

		s.wg.Add(1)
		go func(userID uint64) {
			defer s.wg.Done()
			defer s.setState(userID, StateWaiting)
			s.mergePriorDays(ctx, userID)
		}(userID)
	}
}

// mergePriorDays publishes every still-unpublished journal dated before the
// user's current local day. Failures are logged and left for the next cycle
// or a manual force-merge.
func (s *Scheduler) mergePriorDays(ctx context.Context, userID uint64) {
	today := s.clock().Now().In(s.Store.UserLocation(ctx, userID)).Format(journal.DateLayout)

	journals, err := s.Store.ListUnpublishedBefore(ctx, userID, today)
	if err != nil {
		log.Printf("scheduler: list unpublished for user %d: %v", userID, err)
		return
	}

	merged := false
	for _, j := range journals {
		ref, err := s.Publisher.Publish(ctx, j.ID)
		switch {
		case err == nil:
			log.Printf("scheduler: merged journal %s for user %d -> %s", j.Date, userID, ref.URL)
			merged = true
		case errors.Is(err, ErrNothingToMerge):
			// Empty day; leave the journal alone.
		case errors.Is(err, ErrMergeInProgress):
			// Another attempt (manual or a second instance) holds it.
		default:
			log.Printf("scheduler: merge journal %s for user %d: %v", j.Date, userID, err)
		}
	}

	if merged && s.Janitor != nil {
		s.Janitor(ctx, userID)
	}
}

// ForceMergeNow publishes the user's current-day journal immediately. While
// an attempt is already in flight the publisher's compare-and-swap yields
// ErrMergeInProgress rather than a second concurrent publish.
func (s *Scheduler) ForceMergeNow(ctx context.Context, userID uint64) (archive.RecordRef, error) {
	j, err := s.Store.GetOrCreateJournal(ctx, userID, s.clock().Now())
	if err != nil {
		return archive.RecordRef{}, err
	}

	s.setState(userID, StatePublishing)
	defer s.setState(userID, StateWaiting)

	return s.Publisher.Publish(ctx, j.ID)
}

func (s *Scheduler) setState(userID uint64, st UserState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		s.state = make(map[uint64]UserState)
	}
	s.state[userID] = st
}

func (s *Scheduler) interval() time.Duration {
	if s.Interval > 0 {
		return s.Interval
	}
	return time.Minute
}

func (s *Scheduler) clock() Clock {
	if s.Clock != nil {
		return s.Clock
	}
	return systemClock{}
}
