package app

import (
	"bytes"
	"strings"
	"testing"
	"time"

	xansi "github.com/charmbracelet/x/ansi"

	"convocoach/internal/types"
)

func TestBuildSidebarItemsAddsLoadMoreRow(t *testing.T) {
	list := []*types.Session{{ID: "a"}, nil, {ID: "b"}}

	items := buildSidebarItems(list, true, false)
	if len(items) != 3 {
		t.Fatalf("expected two sessions plus load more, got %d", len(items))
	}
	last := items[2].(*sidebarItem)
	if last.kind != sidebarLoadMore || last.loading {
		t.Fatalf("expected idle load more row, got %#v", last)
	}

	items = buildSidebarItems(list, false, false)
	if len(items) != 2 {
		t.Fatalf("expected no sentinel without more pages, got %d", len(items))
	}

	items = buildSidebarItems(list, false, true)
	if got := items[len(items)-1].(*sidebarItem); got.kind != sidebarLoadMore || !got.loading {
		t.Fatalf("expected loading row while fetching, got %#v", got)
	}

	if items := buildSidebarItems(nil, false, true); len(items) != 0 {
		t.Fatalf("expected empty list while first page loads, got %d", len(items))
	}
}

func TestFormatSince(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}
	cases := []struct {
		last *time.Time
		want string
	}{
		{nil, ""},
		{at(10 * time.Second), "just now"},
		{at(-time.Hour), "just now"},
		{at(5 * time.Minute), "5m ago"},
		{at(3 * time.Hour), "3h ago"},
		{at(50 * time.Hour), "2d ago"},
	}
	for _, tc := range cases {
		if got := formatSince(tc.last, now); got != tc.want {
			t.Fatalf("formatSince(%v) = %q, want %q", tc.last, got, tc.want)
		}
	}
}

func TestSessionLastActivePrefersUpdatedAt(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)
	if got := sessionLastActive(&types.Session{CreatedAt: created, UpdatedAt: &updated}); got == nil || !got.Equal(updated) {
		t.Fatalf("expected updated time, got %v", got)
	}
	if got := sessionLastActive(&types.Session{CreatedAt: created}); got == nil || !got.Equal(created) {
		t.Fatalf("expected created time, got %v", got)
	}
	if got := sessionLastActive(&types.Session{}); got != nil {
		t.Fatalf("expected nil for zero times, got %v", got)
	}
}

func TestTruncateToWidth(t *testing.T) {
	if got := truncateToWidth("hello", 10); got != "hello" {
		t.Fatalf("expected unchanged text, got %q", got)
	}
	if got := truncateToWidth("hello world", 6); got != "hello…" {
		t.Fatalf("expected ellipsis, got %q", got)
	}
	if got := truncateToWidth("hello", 1); got != "…" {
		t.Fatalf("expected lone ellipsis, got %q", got)
	}
	if got := truncateToWidth("日本語テキスト", 5); xansi.StringWidth(got) > 5 {
		t.Fatalf("expected wide runes cut to width, got %q", got)
	}
}

func TestSidebarWidthClamped(t *testing.T) {
	for total, want := range map[int]int{30: minSidebarWidth, 90: 30, 300: maxSidebarWidth} {
		if got := sidebarWidthFor(total); got != want {
			t.Fatalf("sidebarWidthFor(%d) = %d, want %d", total, got, want)
		}
	}
}

func TestSidebarDelegateRendersRow(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	updated := now.Add(-2 * time.Hour)
	delegate := &sidebarDelegate{activeSessionID: "s1", now: func() time.Time { return now }}
	mlist := newSidebarList(delegate)
	mlist.SetSize(30, 10)
	items := buildSidebarItems([]*types.Session{{
		ID:        "s1",
		Title:     "Weekend plans with a much longer title than fits",
		Status:    types.SessionStatusCompleted,
		UpdatedAt: &updated,
	}}, true, false)
	mlist.SetItems(items)

	var row bytes.Buffer
	delegate.Render(&row, mlist, 0, items[0])
	plain := xansi.Strip(row.String())
	if !strings.HasPrefix(plain, " ● Weekend") || !strings.HasSuffix(plain, " • 2h ago") {
		t.Fatalf("unexpected row %q", plain)
	}
	if xansi.StringWidth(plain) > 30 {
		t.Fatalf("expected row within width, got %d", xansi.StringWidth(plain))
	}

	row.Reset()
	delegate.Render(&row, mlist, 1, items[1])
	if got := xansi.Strip(row.String()); got != "  more…" {
		t.Fatalf("unexpected load more row %q", got)
	}
}
