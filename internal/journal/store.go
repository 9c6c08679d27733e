package journal

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrStatusConflict means the stored status did not match the expected
	// one during a compare-and-swap transition; another merge won the race.
	ErrStatusConflict = errors.New("journal status conflict")
)

// Store owns all durable state: journals, entries, per-user settings.
// Accumulator, publisher and cleaner go through it and hold no copies.
type Store struct {
	DB *gorm.DB

	// DefaultLocation resolves local dates for users without a timezone
	// setting. Nil means UTC.
	DefaultLocation *time.Location
}

// EntryData is the capture payload appended to a journal.
type EntryData struct {
	Content   string
	Images    []string
	Tags      []string
	CreatedAt time.Time
}

// UserLocation returns the user's configured zone, falling back to the
// store-wide default.
func (s *Store) UserLocation(ctx context.Context, userID uint64) *time.Location {
	if name, err := s.GetSetting(ctx, userID, SettingTimezone, ""); err == nil && name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if s.DefaultLocation != nil {
		return s.DefaultLocation
	}
	return time.UTC
}

// GetOrCreateJournal resolves the user's local calendar date from asOf and
// returns that date's journal, creating an OPEN one on first capture of the
// day. Lookup is by (user, date), so a prior day's unpublished journal is
// never returned once the local day rolls over.
func (s *Store) GetOrCreateJournal(ctx context.Context, userID uint64, asOf time.Time) (*Journal, error) {
	date := asOf.In(s.UserLocation(ctx, userID)).Format(DateLayout)

	var j Journal
	err := s.DB.WithContext(ctx).
		Where(Journal{UserID: userID, Date: date}).
		Attrs(Journal{Status: StatusOpen}).
		FirstOrCreate(&j).Error
	if err != nil {
		// Concurrent first captures can race the unique (user_id, date)
		// index; the loser re-reads the winner's row.
		if ferr := s.DB.WithContext(ctx).
			Where("user_id = ? AND date = ?", userID, date).
			First(&j).Error; ferr == nil {
			return &j, nil
		}
		return nil, err
	}
	return &j, nil
}

// GetJournal loads a journal by id.
func (s *Store) GetJournal(ctx context.Context, journalID uint64) (*Journal, error) {
	var j Journal
	if err := s.DB.WithContext(ctx).First(&j, journalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &j, nil
}

// AppendEntry appends a capture to a journal, idempotently: a repeat call
// with the same dedupe key returns the stored entry and created=false. The
// unique (journal_id, dedupe_key) index backs the in-tx lookup under
// concurrent delivery.
func (s *Store) AppendEntry(ctx context.Context, journalID uint64, dedupeKey string, data EntryData) (*Entry, bool, error) {
	var e Entry
	created := false

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("journal_id = ? AND dedupe_key = ?", journalID, dedupeKey).
			First(&e).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		e = Entry{
			JournalID: journalID,
			DedupeKey: dedupeKey,
			Content:   data.Content,
			Images:    data.Images,
			Tags:      data.Tags,
			CreatedAt: data.CreatedAt,
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now()
		}
		if err := tx.Create(&e).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		// Unique-index loser under concurrent redelivery: return the winner.
		var existing Entry
		if ferr := s.DB.WithContext(ctx).
			Where("journal_id = ? AND dedupe_key = ?", journalID, dedupeKey).
			First(&existing).Error; ferr == nil {
			return &existing, false, nil
		}
		return nil, false, err
	}
	return &e, created, nil
}

// ListEntries returns a journal's entries in arrival order.
func (s *Store) ListEntries(ctx context.Context, journalID uint64) ([]Entry, error) {
	var out []Entry
	err := s.DB.WithContext(ctx).
		Where("journal_id = ?", journalID).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// CountEntries returns how many entries a journal holds.
func (s *Store) CountEntries(ctx context.Context, journalID uint64) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&Entry{}).
		Where("journal_id = ?", journalID).
		Count(&n).Error
	return n, err
}

// SetJournalStatus transitions a journal's status with compare-and-swap
// semantics: the update only lands if the stored status equals expected,
// otherwise ErrStatusConflict. This is the sole serialization point for
// merges; it stays correct across multiple scheduler instances.
func (s *Store) SetJournalStatus(ctx context.Context, journalID uint64, expected, next Status, ref *PublishedRef) error {
	updates := map[string]any{
		"status":     next,
		"updated_at": time.Now(),
	}
	if ref != nil {
		updates["published_id"] = ref.ID
		updates["published_url"] = ref.URL
	}

	res := s.DB.WithContext(ctx).Model(&Journal{}).
		Where("id = ? AND status = ?", journalID, expected).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

// ListUnpublishedBefore returns the user's OPEN and MERGE_FAILED journals
// dated strictly before date, oldest first. The scheduler drains these at
// each day boundary; a boundary missed while the process was down is caught
// on the next call.
func (s *Store) ListUnpublishedBefore(ctx context.Context, userID uint64, date string) ([]Journal, error) {
	var out []Journal
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND date < ? AND status IN ?", userID, date,
			[]Status{StatusOpen, StatusMergeFailed}).
		Order("date asc").
		Find(&out).Error
	return out, err
}

// ListPublishedOlderThan returns the user's PUBLISHED journals dated strictly
// before cutoffDate. An empty cutoff matches every published journal.
func (s *Store) ListPublishedOlderThan(ctx context.Context, userID uint64, cutoffDate string) ([]Journal, error) {
	q := s.DB.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, StatusPublished)
	if cutoffDate != "" {
		q = q.Where("date < ?", cutoffDate)
	}

	var out []Journal
	err := q.Order("date asc").Find(&out).Error
	return out, err
}

// DeleteJournal removes a journal and cascades to its entries.
func (s *Store) DeleteJournal(ctx context.Context, journalID uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("journal_id = ?", journalID).Delete(&Entry{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Journal{}, journalID).Error
	})
}

// CleanupStats summarizes what the retention cleaner could reclaim.
type CleanupStats struct {
	PublishedJournals int64
	OldestDate        string
	ApproxBytes       int64
}

// Stats reports published-journal counts and an approximate reclaimable size,
// shown to the user before a destructive cleanup.
func (s *Store) Stats(ctx context.Context, userID uint64) (CleanupStats, error) {
	var st CleanupStats

	err := s.DB.WithContext(ctx).Model(&Journal{}).
		Where("user_id = ? AND status = ?", userID, StatusPublished).
		Count(&st.PublishedJournals).Error
	if err != nil {
		return st, err
	}
	if st.PublishedJournals == 0 {
		return st, nil
	}

	var oldest Journal
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, StatusPublished).
		Order("date asc").
		First(&oldest).Error; err == nil {
		st.OldestDate = oldest.Date
	}

	// Content length is a fair proxy; image bytes live in the archive,
	// not locally.
	err = s.DB.WithContext(ctx).Raw(`
select coalesce(sum(length(content)), 0)
from entries
where journal_id in (
  select id from journals where user_id = ? and status = ?
)`, userID, StatusPublished).Scan(&st.ApproxBytes).Error
	return st, err
}

// RecoverStuckMerging demotes every MERGING journal to MERGE_FAILED. Run at
// boot: no other process could have legitimately completed a merge while this
// instance was down, so anything still MERGING is a torn attempt and must
// become retryable.
func (s *Store) RecoverStuckMerging(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&Journal{}).
		Where("status = ?", StatusMerging).
		Updates(map[string]any{
			"status":     StatusMergeFailed,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

// GetSetting reads a user setting, returning def when unset.
func (s *Store) GetSetting(ctx context.Context, userID uint64, key, def string) (string, error) {
	var row Setting
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND key = ?", userID, key).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return def, nil
		}
		return def, err
	}
	return row.Value, nil
}

// SetSetting upserts a user setting.
func (s *Store) SetSetting(ctx context.Context, userID uint64, key, value string) error {
	row := Setting{UserID: userID, Key: key, Value: value, UpdatedAt: time.Now()}
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
}
