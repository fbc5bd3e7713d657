package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anonto42/studyhub/backend/internal/services"
)

func TestNotifierReadModel(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.notifier.Notify(ctx, e.bob.ID, "meeting_request", "one", nil)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	second, _ := e.notifier.Notify(ctx, e.bob.ID, "meeting_request", "two", nil)
	aliceOwn, _ := e.notifier.Notify(ctx, e.alice.ID, "meeting_accepted", "three", nil)

	unread, err := e.notifier.ListUnread(ctx, e.bob.ID)
	if err != nil || len(unread) != 2 {
		t.Fatalf("unread = %d (%v), want 2", len(unread), err)
	}

	// bob cannot mark alice's notification
	n, err := e.notifier.MarkRead(ctx, e.bob.ID, []string{first.ID.Hex(), aliceOwn.ID.Hex(), "garbage"})
	if err != nil || n != 1 {
		t.Fatalf("mark read = %d (%v), want 1", n, err)
	}
	if count, _ := e.notifier.UnreadCount(ctx, e.alice.ID); count != 1 {
		t.Errorf("alice unread = %d, want 1", count)
	}
	unread, _ = e.notifier.ListUnread(ctx, e.bob.ID)
	if len(unread) != 1 || unread[0].ID != second.ID {
		t.Fatalf("bob unread after mark = %+v", unread)
	}

	if _, err := e.notifier.MarkRead(ctx, e.bob.ID, nil); !errors.Is(err, services.ErrInvalidInput) {
		t.Errorf("empty ids err = %v, want ErrInvalidInput", err)
	}

	n, err = e.notifier.MarkAllRead(ctx, e.bob.ID)
	if err != nil || n != 1 {
		t.Fatalf("mark all = %d (%v), want 1", n, err)
	}
	if count, _ := e.notifier.UnreadCount(ctx, e.bob.ID); count != 0 {
		t.Errorf("bob unread = %d, want 0", count)
	}

	page, total, err := e.notifier.List(ctx, e.bob.ID, 1, 1)
	if err != nil || total != 2 || len(page) != 1 {
		t.Fatalf("page = %d total = %d (%v)", len(page), total, err)
	}
}

func TestNotifierGroupsByLocalDay(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ny, _ := time.LoadLocation("America/New_York")

	// 2024-03-01T00:00Z is still Feb 29 in New York.
	stamps := []time.Time{
		requestTime.Add(-1 * time.Hour),       // Feb 29 18:00 NY, today
		requestTime.Add(-18 * time.Hour),      // Feb 29 01:00 NY, today
		requestTime.Add(-30 * time.Hour),      // Feb 28 13:00 NY, yesterday
		requestTime.Add(-4 * 24 * time.Hour),  // this week
		requestTime.Add(-30 * 24 * time.Hour), // older
	}
	for _, ts := range stamps {
		e.clock.Set(ts)
		if _, err := e.notifier.Notify(ctx, e.bob.ID, "meeting_request", "x", nil); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
	e.clock.Set(requestTime)

	today, yesterday, thisWeek, older, err := e.notifier.Grouped(ctx, e.bob.ID, ny)
	if err != nil {
		t.Fatalf("grouped: %v", err)
	}
	if len(today) != 2 || len(yesterday) != 1 || len(thisWeek) != 1 || len(older) != 1 {
		t.Errorf("groups = %d/%d/%d/%d, want 2/1/1/1", len(today), len(yesterday), len(thisWeek), len(older))
	}
}
