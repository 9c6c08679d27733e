package merge

import (
	"context"
	"sync"
	"testing"
	"time"

	"munin/internal/journal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTickMergesPriorDayOnly(t *testing.T) {
	s := newTestStore(t)
	arch := &fakeArchive{}
	clk := &fakeClock{now: time.Date(2026, 2, 19, 0, 1, 0, 0, time.UTC)}

	sched := &Scheduler{
		Store:     s,
		Publisher: &Publisher{Store: s, Archive: arch},
		Users:     []uint64{7},
		Clock:     clk,
	}

	yesterday := seedJournal(t, s, 7, clk.Now().AddDate(0, 0, -1), "yesterday's note")
	today := seedJournal(t, s, 7, clk.Now(), "today's note")

	sched.tick(context.Background())
	sched.wg.Wait()

	assert.Equal(t, 1, arch.callCount())
	assert.Equal(t, "2026-02-18", arch.calls[0].Title)

	got, err := s.GetJournal(context.Background(), yesterday.ID)
	require.NoError(t, err)
	assert.Equal(t, journal.StatusPublished, got.Status)

	// Today's journal stays open until its own boundary passes.
	got, err = s.GetJournal(context.Background(), today.ID)
	require.NoError(t, err)
	assert.Equal(t, journal.StatusOpen, got.Status)
}

func TestTickDrainsMissedBoundaries(t *testing.T) {
	s := newTestStore(t)
	arch := &fakeArchive{}
	clk := &fakeClock{now: time.Date(2026, 2, 19, 0, 1, 0, 0, time.UTC)}

	sched := &Scheduler{
		Store:     s,
		Publisher: &Publisher{Store: s, Archive: arch},
		Users:     []uint64{7},
		Clock:     clk,
	}

	// Process was down for three days; all three journals are still open.
	for d := 1; d <= 3; d++ {
		seedJournal(t, s, 7, clk.Now().AddDate(0, 0, -d), "note")
	}

	sched.tick(context.Background())
	sched.wg.Wait()

	assert.Equal(t, 3, arch.callCount())
	// Oldest first.
	assert.Equal(t, "2026-02-16", arch.calls[0].Title)
	assert.Equal(t, "2026-02-18", arch.calls[2].Title)
}

func TestTickSkipsEmptyAndFailedJournalsRetry(t *testing.T) {
	s := newTestStore(t)
	arch := &fakeArchive{}
	clk := &fakeClock{now: time.Date(2026, 2, 19, 0, 1, 0, 0, time.UTC)}
	ctx := context.Background()

	sched := &Scheduler{
		Store:     s,
		Publisher: &Publisher{Store: s, Archive: arch},
		Users:     []uint64{7},
		Clock:     clk,
	}

	empty := seedJournal(t, s, 7, clk.Now().AddDate(0, 0, -2))
	failed := seedJournal(t, s, 7, clk.Now().AddDate(0, 0, -1), "retry me")
	require.NoError(t, s.SetJournalStatus(ctx, failed.ID, journal.StatusOpen, journal.StatusMerging, nil))
	require.NoError(t, s.SetJournalStatus(ctx, failed.ID, journal.StatusMerging, journal.StatusMergeFailed, nil))

	sched.tick(ctx)
	sched.wg.Wait()

	assert.Equal(t, 1, arch.callCount())

	got, err := s.GetJournal(ctx, empty.ID)
	require.NoError(t, err)
	assert.Equal(t, journal.StatusOpen, got.Status)

	got, err = s.GetJournal(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, journal.StatusPublished, got.Status)
}

func TestForceMergeNowPublishesToday(t *testing.T) {
	s := newTestStore(t)
	arch := &fakeArchive{}
	clk := &fakeClock{now: time.Date(2026, 2, 18, 15, 0, 0, 0, time.UTC)}
	ctx := context.Background()

	sched := &Scheduler{
		Store:     s,
		Publisher: &Publisher{Store: s, Archive: arch},
		Users:     []uint64{7},
		Clock:     clk,
	}

	seedJournal(t, s, 7, clk.Now(), "today #now")

	ref, err := sched.ForceMergeNow(ctx, 7)
	require.NoError(t, err)
	assert.NotEmpty(t, ref.URL)
	assert.Equal(t, 1, arch.callCount())
	assert.Equal(t, "2026-02-18", arch.calls[0].Title)
}

func TestForceMergeNowEmptyDay(t *testing.T) {
	s := newTestStore(t)
	arch := &fakeArchive{}
	sched := &Scheduler{
		Store:     s,
		Publisher: &Publisher{Store: s, Archive: arch},
		Users:     []uint64{7},
		Clock:     &fakeClock{now: time.Date(2026, 2, 18, 15, 0, 0, 0, time.UTC)},
	}

	_, err := sched.ForceMergeNow(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNothingToMerge)
	assert.Equal(t, 0, arch.callCount())
}

func TestSchedulerRunsJanitorAfterMerge(t *testing.T) {
	s := newTestStore(t)
	arch := &fakeArchive{}
	clk := &fakeClock{now: time.Date(2026, 2, 19, 0, 1, 0, 0, time.UTC)}

	var mu sync.Mutex
	swept := []uint64{}

	sched := &Scheduler{
		Store:     s,
		Publisher: &Publisher{Store: s, Archive: arch},
		Users:     []uint64{7},
		Clock:     clk,
		Janitor: func(ctx context.Context, userID uint64) {
			mu.Lock()
			swept = append(swept, userID)
			mu.Unlock()
		},
	}

	seedJournal(t, s, 7, clk.Now().AddDate(0, 0, -1), "note")

	sched.tick(context.Background())
	sched.wg.Wait()

	assert.Equal(t, []uint64{7}, swept)

	// No merge on the second pass, so no sweep either.
	sched.tick(context.Background())
	sched.wg.Wait()
	assert.Len(t, swept, 1)
}

func TestSchedulerStartStop(t *testing.T) {
	s := newTestStore(t)
	arch := &fakeArchive{}

	sched := &Scheduler{
		Store:     s,
		Publisher: &Publisher{Store: s, Archive: arch},
		Users:     []uint64{7},
		Interval:  10 * time.Millisecond,
		Clock:     &fakeClock{now: time.Date(2026, 2, 19, 0, 1, 0, 0, time.UTC)},
	}

	seedJournal(t, s, 7, time.Date(2026, 2, 18, 9, 0, 0, 0, time.UTC), "note")

	sched.Start(context.Background())
	defer sched.Stop()

	require.Eventually(t, func() bool {
		return arch.callCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}
