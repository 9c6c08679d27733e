package journal

import "time"

// Status is the journal lifecycle state. The status column doubles as the
// merge lock: transitions go through compare-and-swap updates, so at most one
// publish attempt can hold MERGING for a given journal.
type Status string

const (
	StatusOpen        Status = "OPEN"
	StatusMerging     Status = "MERGING"
	StatusPublished   Status = "PUBLISHED"
	StatusMergeFailed Status = "MERGE_FAILED"
)

// DateLayout is the local calendar date stored on a journal.
const DateLayout = "2006-01-02"

// Journal is one user's accumulation for one local calendar day.
// Exactly one row exists per (user_id, date).
type Journal struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"index;not null"`
	Date   string `gorm:"type:text;not null"` // YYYY-MM-DD in the user's zone

	Status Status `gorm:"type:text;not null;default:'OPEN'"`

	// Set only once the journal reaches PUBLISHED.
	PublishedID  int64  `gorm:"not null;default:0"`
	PublishedURL string `gorm:"type:text;not null;default:''"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Entry is one captured unit. Rows are append-only; DedupeKey makes redelivery
// of the same inbound message a no-op.
type Entry struct {
	ID        uint64 `gorm:"primaryKey"`
	JournalID uint64 `gorm:"index;not null"`
	DedupeKey string `gorm:"type:text;not null"`

	Content string   `gorm:"type:text;not null;default:''"`
	Images  []string `gorm:"serializer:json;type:text"` // pre-hosted refs, opaque
	Tags    []string `gorm:"serializer:json;type:text"` // first-seen order

	CreatedAt time.Time `gorm:"not null"`
}

// Setting is a per-user key/value pair (timezone, display format, locations).
type Setting struct {
	UserID uint64 `gorm:"primaryKey;autoIncrement:false"`
	Key    string `gorm:"primaryKey;type:text"`
	Value  string `gorm:"type:text;not null;default:''"`

	UpdatedAt time.Time `gorm:"not null"`
}

// PublishedRef points at the archive record a journal was merged into.
type PublishedRef struct {
	ID  int64
	URL string
}

// Setting keys the core reads itself.
const (
	SettingTimezone        = "timezone"
	SettingShowEntryTime   = "show_entry_time"
	SettingEntryTimeFormat = "entry_time_format"
	SettingWeatherLocation = "weather_location"
)
