package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tazhate/surprisebot/internal/domain"
	"github.com/tazhate/surprisebot/internal/storage"
)

func newTestService(t *testing.T) (*BirthdayService, storage.Store) {
	t.Helper()
	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "db.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return NewBirthdayService(store), store
}

func seedBirthdays(t *testing.T, store storage.Store) {
	t.Helper()
	ctx := context.Background()
	entries := []struct{ id, name, bd string }{
		{"1", "Alice", "03.11"},
		{"2", "Bob", "01.01"},
		{"3", "Carol", "15.06"},
	}
	for _, e := range entries {
		if err := store.UpsertUser(ctx, &domain.UserRecord{ID: e.id, FirstName: e.name}); err != nil {
			t.Fatalf("UpsertUser: %v", err)
		}
		if err := store.SetBirthday(ctx, e.id, e.bd); err != nil {
			t.Fatalf("SetBirthday: %v", err)
		}
	}
}

func TestListUpcomingSortsByDays(t *testing.T) {
	svc, store := newTestService(t)
	seedBirthdays(t, store)

	// Oct 1: Alice (03.11) closest, then Bob (01.01), then Carol (15.06)
	now := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)
	entries := svc.ListUpcoming(context.Background(), now, 0)

	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	want := []string{"Alice", "Bob", "Carol"}
	for i, name := range want {
		if entries[i].User.FirstName != name {
			t.Errorf("entry %d = %s, want %s", i, entries[i].User.FirstName, name)
		}
	}
	if entries[0].Days >= entries[1].Days || entries[1].Days >= entries[2].Days {
		t.Errorf("days not ascending: %d %d %d", entries[0].Days, entries[1].Days, entries[2].Days)
	}
}

func TestListUpcomingClampsLimit(t *testing.T) {
	svc, store := newTestService(t)
	seedBirthdays(t, store)
	now := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)

	if entries := svc.ListUpcoming(context.Background(), now, 1); len(entries) != 1 {
		t.Errorf("limit 1: got %d entries", len(entries))
	}
	if entries := svc.ListUpcoming(context.Background(), now, -5); len(entries) != 1 {
		t.Errorf("negative limit should clamp to 1, got %d entries", len(entries))
	}
	if entries := svc.ListUpcoming(context.Background(), now, 100); len(entries) != 3 {
		t.Errorf("limit above max: got %d entries", len(entries))
	}
}

func TestFormatUpcoming(t *testing.T) {
	svc, store := newTestService(t)
	seedBirthdays(t, store)

	now := time.Date(2025, time.November, 2, 0, 0, 0, 0, time.UTC)
	got := svc.FormatUpcoming(svc.ListUpcoming(context.Background(), now, 0))

	if !strings.Contains(got, "Alice — 03.11 (завтра)") {
		t.Errorf("missing tomorrow entry:\n%s", got)
	}

	now = time.Date(2025, time.November, 3, 0, 0, 0, 0, time.UTC)
	got = svc.FormatUpcoming(svc.ListUpcoming(context.Background(), now, 0))
	if !strings.Contains(got, "(сегодня!)") {
		t.Errorf("missing today marker:\n%s", got)
	}
}

func TestFormatUpcomingEmpty(t *testing.T) {
	svc, _ := newTestService(t)

	got := svc.FormatUpcoming(nil)
	if !strings.Contains(got, "нет данных") {
		t.Errorf("empty list message = %q", got)
	}
}

func TestReminderTexts(t *testing.T) {
	svc, _ := newTestService(t)
	alice := &domain.UserRecord{ID: "1", FirstName: "Alice", Birthday: "03.11"}

	three := svc.ThreeDayReminder(alice, "https://example.com/box")
	if !strings.Contains(three, "Alice") || !strings.Contains(three, "03.11") {
		t.Errorf("3-day reminder = %q", three)
	}
	if !strings.Contains(three, "https://example.com/box") {
		t.Errorf("3-day reminder missing gift link: %q", three)
	}

	bare := svc.ThreeDayReminder(alice, "")
	if strings.Contains(bare, "http") {
		t.Errorf("3-day reminder without link should not mention one: %q", bare)
	}

	if got := svc.TomorrowReminder(alice); !strings.Contains(got, "Завтра др") {
		t.Errorf("tomorrow reminder = %q", got)
	}
	if got := svc.Congratulation(alice); !strings.Contains(got, "Поздравляем") {
		t.Errorf("congratulation = %q", got)
	}
}

func TestCalendarICS(t *testing.T) {
	svc, store := newTestService(t)
	seedBirthdays(t, store)

	now := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)
	data, err := svc.CalendarICS(context.Background(), now)
	if err != nil {
		t.Fatalf("CalendarICS: %v", err)
	}

	ics := string(data)
	for _, marker := range []string{"BEGIN:VCALENDAR", "RRULE:FREQ=YEARLY", "Alice", "Bob", "Carol"} {
		if !strings.Contains(ics, marker) {
			t.Errorf("ics missing %q:\n%s", marker, ics)
		}
	}
}

func TestCalendarICSEmptyStore(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.CalendarICS(context.Background(), time.Now()); err == nil {
		t.Error("expected error for empty store")
	}
}
