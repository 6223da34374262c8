package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/tazhate/surprisebot/internal/dates"
	"github.com/tazhate/surprisebot/internal/domain"
	"github.com/tazhate/surprisebot/internal/storage"
)

const (
	// upcoming list limit bounds
	minUpcoming     = 1
	maxUpcoming     = 50
	defaultUpcoming = 10
)

type BirthdayService struct {
	storage storage.Store
}

func NewBirthdayService(s storage.Store) *BirthdayService {
	return &BirthdayService{storage: s}
}

// Upcoming is one entry of the sorted birthday list
type Upcoming struct {
	User *domain.UserRecord
	Days int
}

// ListUpcoming returns birthday-bearing users sorted by days until the
// next occurrence, at most limit entries. Limit is clamped to [1,50],
// zero means the default of 10.
func (s *BirthdayService) ListUpcoming(ctx context.Context, now time.Time, limit int) []Upcoming {
	if limit == 0 {
		limit = defaultUpcoming
	}
	if limit < minUpcoming {
		limit = minUpcoming
	}
	if limit > maxUpcoming {
		limit = maxUpcoming
	}

	users := s.storage.UsersWithBirthday(ctx)

	entries := make([]Upcoming, 0, len(users))
	for _, u := range users {
		entries = append(entries, Upcoming{User: u, Days: dates.DaysUntil(u.Birthday, now)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Days < entries[j].Days })

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// FormatUpcoming formats the sorted list for display
func (s *BirthdayService) FormatUpcoming(entries []Upcoming) string {
	if len(entries) == 0 {
		return "Пока нет данных о днях рождения. Отправьте мне /mybd DD.MM в личку!"
	}

	var sb strings.Builder
	sb.WriteString("🎂 Ближайшие дни рождения:\n\n")
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("• %s — %s", e.User.DisplayName(), e.User.Birthday))
		switch e.Days {
		case 0:
			sb.WriteString(" (сегодня!)")
		case 1:
			sb.WriteString(" (завтра)")
		default:
			sb.WriteString(fmt.Sprintf(" (через %d дн.)", e.Days))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// ThreeDayReminder builds the private message sent 3 days ahead.
// The gift link is appended when any group has one set.
func (s *BirthdayService) ThreeDayReminder(u *domain.UserRecord, giftLink string) string {
	text := fmt.Sprintf("🎁 Через 3 дня др у %s (%s)! Пора подумать о подарке.", u.DisplayName(), u.Birthday)
	if giftLink != "" {
		text += fmt.Sprintf("\nСкинуться можно тут: %s", giftLink)
	}
	return text
}

// TomorrowReminder builds the private message sent 1 day ahead
func (s *BirthdayService) TomorrowReminder(u *domain.UserRecord) string {
	return fmt.Sprintf("⏰ Завтра др у %s (%s)! Не забудьте поздравить.", u.DisplayName(), u.Birthday)
}

// Congratulation builds the public day-of message for group chats
func (s *BirthdayService) Congratulation(u *domain.UserRecord) string {
	return fmt.Sprintf("🎉 Поздравляем %s с днём рождения!", u.DisplayName())
}

// CalendarICS renders every recorded birthday as a yearly-recurring
// all-day event and returns the encoded iCalendar document.
func (s *BirthdayService) CalendarICS(ctx context.Context, now time.Time) ([]byte, error) {
	users := s.storage.UsersWithBirthday(ctx)
	if len(users) == 0 {
		return nil, fmt.Errorf("нет сохранённых дней рождения")
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//SurpriseBot//Birthdays//EN")

	for _, u := range users {
		days := dates.DaysUntil(u.Birthday, now)
		if days < 0 {
			continue
		}
		start := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC).
			AddDate(0, 0, days)

		vevent := ical.NewEvent()
		vevent.Props.SetText(ical.PropUID, fmt.Sprintf("bday-%s@surprisebot", u.ID))
		vevent.Props.SetText(ical.PropSummary, fmt.Sprintf("🎂 %s", u.DisplayName()))
		vevent.Props.SetDate(ical.PropDateTimeStart, start)
		rruleProp := ical.NewProp(ical.PropRecurrenceRule)
		rruleProp.Value = "FREQ=YEARLY"
		vevent.Props.Set(rruleProp)
		vevent.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())

		cal.Children = append(cal.Children, vevent.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}
