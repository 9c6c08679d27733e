package merge

import (
	"context"
	"errors"
	"log"
	"time"

	"munin/internal/archive"
	"munin/internal/journal"
)

var (
	// ErrMergeInProgress means another publish attempt holds the MERGING
	// status for this journal. Informational, not a failure.
	ErrMergeInProgress = errors.New("merge already in progress")
	// ErrNothingToMerge means the journal has no entries; no remote call
	// is made for an empty day.
	ErrNothingToMerge = errors.New("nothing to merge")
	// ErrAlreadyPublished means the journal already has an archive record.
	ErrAlreadyPublished = errors.New("journal already published")
)

// RemoteArchiveError wraps a failed archive call. The journal is left in
// MERGE_FAILED and stays retryable on the next scheduled or manual attempt.
type RemoteArchiveError struct {
	Err error
}

func (e *RemoteArchiveError) Error() string { return "remote archive: " + e.Err.Error() }
func (e *RemoteArchiveError) Unwrap() error { return e.Err }

// Publisher performs the one-time publish of a journal to the remote archive.
// Mutual exclusion lives in the store's compare-and-swap status transition,
// not in any in-process lock.
type Publisher struct {
	Store   *journal.Store
	Archive archive.Client

	// Label is the archive's categorization label attached to every record.
	Label string

	// Title optionally enriches record titles (weather/lunar header).
	// Receives the journal date, returns the title.
	Title func(date string) string

	// Timeout bounds the remote archive call so a hung request cannot
	// stall the scheduler loop. Zero means 30s.
	Timeout time.Duration
}

// Publish moves a journal through MERGING and, on success, to PUBLISHED with
// the archive reference. Preconditions: status OPEN or MERGE_FAILED. The
// entry set is re-read after entering MERGING, so entries appended afterwards
// wait for the next cycle and a retry after failure always carries the full
// current set.
func (p *Publisher) Publish(ctx context.Context, journalID uint64) (archive.RecordRef, error) {
	var ref archive.RecordRef

	j, err := p.Store.GetJournal(ctx, journalID)
	if err != nil {
		return ref, err
	}

	switch j.Status {
	case journal.StatusMerging:
		return ref, ErrMergeInProgress
	case journal.StatusPublished:
		return ref, ErrAlreadyPublished
	}

	if err := p.Store.SetJournalStatus(ctx, j.ID, j.Status, journal.StatusMerging, nil); err != nil {
		if errors.Is(err, journal.ErrStatusConflict) {
			// Lost the race between the read above and the swap.
			return ref, ErrMergeInProgress
		}
		return ref, err
	}

	entries, err := p.Store.ListEntries(ctx, j.ID)
	if err != nil {
		p.revert(ctx, j.ID, journal.StatusMergeFailed)
		return ref, err
	}
	if len(entries) == 0 {
		p.revert(ctx, j.ID, journal.StatusOpen)
		return ref, ErrNothingToMerge
	}

	doc := BuildDocument(j.Date, entries, p.documentOptions(ctx, j.UserID))

	callCtx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	ref, err = p.Archive.CreateRecord(callCtx, doc.Title, doc.Body, doc.Labels)
	if err != nil {
		p.revert(ctx, j.ID, journal.StatusMergeFailed)
		return archive.RecordRef{}, &RemoteArchiveError{Err: err}
	}

	if err := p.Store.SetJournalStatus(ctx, j.ID, journal.StatusMerging,
		journal.StatusPublished, &journal.PublishedRef{ID: ref.ID, URL: ref.URL}); err != nil {
		// The record exists remotely; losing the local mark would allow a
		// duplicate on retry, so this is worth shouting about.
		log.Printf("publisher: journal %d published as %s but status update failed: %v", j.ID, ref.URL, err)
		return ref, err
	}
	return ref, nil
}

func (p *Publisher) revert(ctx context.Context, journalID uint64, to journal.Status) {
	if err := p.Store.SetJournalStatus(ctx, journalID, journal.StatusMerging, to, nil); err != nil {
		log.Printf("publisher: revert journal %d to %s: %v", journalID, to, err)
	}
}

func (p *Publisher) timeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return 30 * time.Second
}

func (p *Publisher) documentOptions(ctx context.Context, userID uint64) DocumentOptions {
	showRaw, _ := p.Store.GetSetting(ctx, userID, journal.SettingShowEntryTime, "1")
	format, _ := p.Store.GetSetting(ctx, userID, journal.SettingEntryTimeFormat, "15:04")

	return DocumentOptions{
		ShowTime:   showRaw == "1" || showRaw == "on" || showRaw == "true",
		TimeFormat: format,
		Location:   p.Store.UserLocation(ctx, userID),
		Title:      p.Title,
		Label:      p.Label,
	}
}
