// Package retention reclaims local storage for journals that already made it
// into the remote archive.
package retention

import (
	"context"
	"fmt"
	"time"

	"munin/internal/journal"
)

// KeepAll disables the retention window: every published journal is deleted.
const KeepAll = -1

// Cleaner deletes published journals older than a retention window. It never
// touches OPEN, MERGING or MERGE_FAILED journals regardless of age; unmerged
// data is never silently destroyed.
type Cleaner struct {
	Store *journal.Store

	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

// Cleanup deletes the user's published journals dated strictly before
// today - days (in the user's zone), cascading to their entries, and returns
// how many journals were removed. days == KeepAll drops every published
// journal.
func (c *Cleaner) Cleanup(ctx context.Context, userID uint64, days int) (int, error) {
	cutoff := ""
	if days != KeepAll {
		if days < 0 {
			return 0, fmt.Errorf("invalid retention days %d", days)
		}
		today := c.now().In(c.Store.UserLocation(ctx, userID))
		cutoff = today.AddDate(0, 0, -days).Format(journal.DateLayout)
	}

	journals, err := c.Store.ListPublishedOlderThan(ctx, userID, cutoff)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, j := range journals {
		if err := c.Store.DeleteJournal(ctx, j.ID); err != nil {
			return deleted, fmt.Errorf("delete journal %s: %w", j.Date, err)
		}
		deleted++
	}
	return deleted, nil
}

// Stats reports what a cleanup could reclaim, for user confirmation before
// the destructive call.
func (c *Cleaner) Stats(ctx context.Context, userID uint64) (journal.CleanupStats, error) {
	return c.Store.Stats(ctx, userID)
}

func (c *Cleaner) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
