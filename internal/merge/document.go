package merge

import (
	"strings"
	"time"

	"munin/internal/journal"
)

// Document is the archive record built from one journal's entries.
type Document struct {
	Title  string
	Body   string
	Labels []string
}

// DocumentOptions control per-user rendering of entries.
type DocumentOptions struct {
	ShowTime   bool
	TimeFormat string // time.Format layout, e.g. "15:04" or "03:04 PM"
	Location   *time.Location

	// Title derives the record title from the journal date; enrichment
	// (weather, lunar calendar) plugs in here. Nil uses the date itself.
	Title func(date string) string

	// Label is attached to every record ahead of user tags.
	Label string
}

// BuildDocument serializes entries in arrival order: each entry's text
// (optionally time-prefixed), then a separator line before its trailing image
// block. Tags are unioned across entries in first-seen order and become
// archive labels after the journal label.
func BuildDocument(date string, entries []journal.Entry, opts DocumentOptions) Document {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	blocks := make([]string, 0, len(entries))
	seen := map[string]struct{}{}
	var labels []string
	if opts.Label != "" {
		labels = append(labels, opts.Label)
	}

	for _, e := range entries {
		text := strings.TrimSpace(e.Content)
		if opts.ShowTime {
			ts := e.CreatedAt.In(loc).Format(opts.TimeFormat)
			if text != "" {
				text = ts + " " + text
			} else {
				text = ts
			}
		}

		var parts []string
		if text != "" {
			parts = append(parts, text)
		}
		if len(e.Images) > 0 {
			parts = append(parts, "---", strings.Join(e.Images, "\n\n"))
		}
		if len(parts) > 0 {
			blocks = append(blocks, strings.Join(parts, "\n\n"))
		}

		for _, t := range e.Tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			labels = append(labels, t)
		}
	}

	title := date
	if opts.Title != nil {
		title = opts.Title(date)
	}

	return Document{
		Title:  title,
		Body:   strings.Join(blocks, "\n\n"),
		Labels: labels,
	}
}
