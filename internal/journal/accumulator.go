package journal

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPermissionDenied rejects captures from users outside the allow-list.
var ErrPermissionDenied = errors.New("permission denied")

// Accumulator turns inbound captures into entries on "today's" journal.
// It performs no network calls; image refs arrive already hosted.
type Accumulator struct {
	Store *Store

	// Allowed reports whether a user may capture. Nil allows everyone
	// (single-owner deployments often skip the list).
	Allowed func(userID uint64) bool

	// Label is the archive's own categorization label, excluded from
	// extracted tags.
	Label string
}

// Capture appends one inbound message to the user's journal for the local
// calendar day of now. Redelivery with the same messageID returns the stored
// entry unchanged. The returned total is the journal's entry count, for
// "recorded (#N)" style feedback.
//
// A capture for an already-published day is still accepted as a local record;
// it does not trigger a republish.
func (a *Accumulator) Capture(ctx context.Context, userID uint64, messageID, text string, imageRefs []string, now time.Time) (*Entry, int64, error) {
	if a.Allowed != nil && !a.Allowed(userID) {
		return nil, 0, ErrPermissionDenied
	}

	j, err := a.Store.GetOrCreateJournal(ctx, userID, now)
	if err != nil {
		return nil, 0, fmt.Errorf("resolve journal: %w", err)
	}

	entry, _, err := a.Store.AppendEntry(ctx, j.ID, messageID, EntryData{
		Content:   text,
		Images:    imageRefs,
		Tags:      ExtractTags(text, a.Label),
		CreatedAt: now,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("append entry: %w", err)
	}

	total, err := a.Store.CountEntries(ctx, j.ID)
	if err != nil {
		return nil, 0, err
	}
	return entry, total, nil
}
