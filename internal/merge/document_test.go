package merge

import (
	"testing"
	"time"

	"munin/internal/journal"

	"github.com/stretchr/testify/assert"
)

func TestBuildDocumentArrivalOrderAndImages(t *testing.T) {
	entries := []journal.Entry{
		{
			Content:   "Morning walk #health",
			Tags:      []string{"health"},
			CreatedAt: time.Date(2026, 2, 18, 8, 30, 0, 0, time.UTC),
		},
		{
			Content:   "Coffee #life",
			Images:    []string{"![](https://example.com/coffee.jpg)"},
			Tags:      []string{"life"},
			CreatedAt: time.Date(2026, 2, 18, 10, 15, 0, 0, time.UTC),
		},
	}

	doc := BuildDocument("2026-02-18", entries, DocumentOptions{
		ShowTime:   true,
		TimeFormat: "15:04",
		Location:   time.UTC,
		Label:      "journal",
	})

	assert.Equal(t, "2026-02-18", doc.Title)
	assert.Equal(t, []string{"journal", "health", "life"}, doc.Labels)

	want := "08:30 Morning walk #health\n\n" +
		"10:15 Coffee #life\n\n" +
		"---\n\n" +
		"![](https://example.com/coffee.jpg)"
	assert.Equal(t, want, doc.Body)
}

func TestBuildDocumentWithoutTime(t *testing.T) {
	entries := []journal.Entry{
		{Content: "just text"},
		{Images: []string{"![](a.jpg)", "![](b.jpg)"}},
	}

	doc := BuildDocument("2026-02-18", entries, DocumentOptions{})

	want := "just text\n\n" +
		"---\n\n" +
		"![](a.jpg)\n\n![](b.jpg)"
	assert.Equal(t, want, doc.Body)
	assert.Empty(t, doc.Labels)
}

func TestBuildDocumentTagUnionFirstSeen(t *testing.T) {
	entries := []journal.Entry{
		{Content: "a", Tags: []string{"life", "health"}},
		{Content: "b", Tags: []string{"health", "reading"}},
	}

	doc := BuildDocument("2026-02-18", entries, DocumentOptions{})
	assert.Equal(t, []string{"life", "health", "reading"}, doc.Labels)
}

func TestBuildDocumentTitleHook(t *testing.T) {
	doc := BuildDocument("2026-02-18", []journal.Entry{{Content: "x"}}, DocumentOptions{
		Title: func(date string) string { return "📔 " + date + " 晴" },
	})
	assert.Equal(t, "📔 2026-02-18 晴", doc.Title)
}

func TestBuildDocumentEntryTimeInUserZone(t *testing.T) {
	sh, _ := time.LoadLocation("Asia/Shanghai")
	entries := []journal.Entry{
		{Content: "night note", CreatedAt: time.Date(2026, 2, 18, 20, 0, 0, 0, time.UTC)},
	}

	doc := BuildDocument("2026-02-19", entries, DocumentOptions{
		ShowTime:   true,
		TimeFormat: "15:04",
		Location:   sh,
	})
	assert.Equal(t, "04:00 night note", doc.Body)
}
