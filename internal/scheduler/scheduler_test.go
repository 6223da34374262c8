package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tazhate/surprisebot/config"
	"github.com/tazhate/surprisebot/internal/domain"
	"github.com/tazhate/surprisebot/internal/service"
	"github.com/tazhate/surprisebot/internal/storage"
)

type sentMsg struct {
	chatID int64
	text   string
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMsg
	failFor map[int64]bool
}

func (f *fakeSender) SendMessage(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[chatID] {
		return errors.New("blocked by user")
	}
	f.sent = append(f.sent, sentMsg{chatID: chatID, text: text})
	return nil
}

func (f *fakeSender) messages() []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMsg(nil), f.sent...)
}

func seedStore(t *testing.T, snap *domain.Snapshot) storage.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.json")
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	s, err := storage.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

func testSnapshot() *domain.Snapshot {
	snap := domain.NewSnapshot()
	snap.Users["1"] = &domain.UserRecord{ID: "1", FirstName: "Alice", Birthday: "03.11"}
	snap.Users["2"] = &domain.UserRecord{ID: "2", FirstName: "Bob", OptIn: true}
	snap.Users["3"] = &domain.UserRecord{ID: "3", FirstName: "Carol", OptIn: true}
	snap.Groups["-100"] = &domain.GroupRecord{ID: "-100", GiftsEnabled: true}
	snap.Groups["-200"] = &domain.GroupRecord{ID: "-200"}
	return snap
}

func newTestScheduler(t *testing.T, snap *domain.Snapshot) (*Scheduler, *fakeSender) {
	t.Helper()
	store := seedStore(t, snap)
	svc := service.NewBirthdayService(store)
	sched := New(&config.Config{Timezone: time.UTC, NotifyTime: "09:00"}, store, svc)
	sender := &fakeSender{}
	sched.SetSender(sender)
	return sched, sender
}

func TestTickThreeDaysBefore(t *testing.T) {
	sched, sender := newTestScheduler(t, testSnapshot())

	// Oct 31 is three days before Nov 3
	sched.RunDailyTick(context.Background(), time.Date(2025, time.October, 31, 9, 0, 0, 0, time.UTC))

	msgs := sender.messages()
	if len(msgs) != 2 {
		t.Fatalf("sent %d messages, want 2", len(msgs))
	}
	got := map[int64]bool{}
	for _, m := range msgs {
		got[m.chatID] = true
		if m.chatID == 1 {
			t.Error("birthday person must not get a reminder")
		}
	}
	if !got[2] || !got[3] {
		t.Errorf("recipients = %v, want 2 and 3", got)
	}
}

func TestTickThreeDaysBeforeIncludesGiftLink(t *testing.T) {
	snap := testSnapshot()
	snap.Groups["-100"].GiftLink = "https://example.com/box"
	sched, sender := newTestScheduler(t, snap)

	sched.RunDailyTick(context.Background(), time.Date(2025, time.October, 31, 9, 0, 0, 0, time.UTC))

	for _, m := range sender.messages() {
		if !strings.Contains(m.text, "https://example.com/box") {
			t.Errorf("reminder to %d missing gift link: %q", m.chatID, m.text)
		}
	}
}

func TestTickOneDayBefore(t *testing.T) {
	snap := testSnapshot()
	delete(snap.Users, "3")
	sched, sender := newTestScheduler(t, snap)

	sched.RunDailyTick(context.Background(), time.Date(2025, time.November, 2, 9, 0, 0, 0, time.UTC))

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(msgs))
	}
	if msgs[0].chatID != 2 {
		t.Errorf("recipient = %d, want 2", msgs[0].chatID)
	}
	if !strings.Contains(msgs[0].text, "Завтра др") {
		t.Errorf("message missing tomorrow marker: %q", msgs[0].text)
	}
}

func TestTickBirthdayDay(t *testing.T) {
	snap := testSnapshot()
	delete(snap.Users, "2")
	delete(snap.Users, "3")
	sched, sender := newTestScheduler(t, snap)

	sched.RunDailyTick(context.Background(), time.Date(2025, time.November, 3, 9, 0, 0, 0, time.UTC))

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(msgs))
	}
	if msgs[0].chatID != -100 {
		t.Errorf("recipient = %d, want gift-enabled group -100", msgs[0].chatID)
	}
	if !strings.Contains(msgs[0].text, "Поздравляем") {
		t.Errorf("message missing congratulation marker: %q", msgs[0].text)
	}
	if !strings.Contains(msgs[0].text, "Alice") {
		t.Errorf("message missing birthday person's name: %q", msgs[0].text)
	}
}

func TestTickQuietDay(t *testing.T) {
	sched, sender := newTestScheduler(t, testSnapshot())

	sched.RunDailyTick(context.Background(), time.Date(2025, time.June, 15, 9, 0, 0, 0, time.UTC))

	if msgs := sender.messages(); len(msgs) != 0 {
		t.Errorf("sent %d messages on a quiet day, want 0", len(msgs))
	}
}

func TestTickSendFailureIsolated(t *testing.T) {
	sched, sender := newTestScheduler(t, testSnapshot())
	sender.failFor = map[int64]bool{2: true}

	sched.RunDailyTick(context.Background(), time.Date(2025, time.October, 31, 9, 0, 0, 0, time.UTC))

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages, want 1 despite one failure", len(msgs))
	}
	if msgs[0].chatID != 3 {
		t.Errorf("surviving recipient = %d, want 3", msgs[0].chatID)
	}
}

func TestTickEmptyStore(t *testing.T) {
	sched, sender := newTestScheduler(t, domain.NewSnapshot())

	sched.RunDailyTick(context.Background(), time.Now())

	if msgs := sender.messages(); len(msgs) != 0 {
		t.Errorf("sent %d messages from empty store, want 0", len(msgs))
	}
}
