package scheduler

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tazhate/surprisebot/config"
	"github.com/tazhate/surprisebot/internal/dates"
	"github.com/tazhate/surprisebot/internal/service"
	"github.com/tazhate/surprisebot/internal/storage"
)

type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

// Scheduler runs the daily birthday tick. It is stateless across
// invocations: "exactly once per day" relies on cron firing once, not
// on any persisted guard. A restart around NOTIFY_TIME can duplicate
// or skip a day's notifications.
type Scheduler struct {
	cron    *cron.Cron
	cfg     *config.Config
	storage storage.Store
	svc     *service.BirthdayService
	sender  MessageSender
}

func New(cfg *config.Config, store storage.Store, svc *service.BirthdayService) *Scheduler {
	c := cron.New(cron.WithLocation(cfg.Timezone))

	return &Scheduler{
		cron:    c,
		cfg:     cfg,
		storage: store,
		svc:     svc,
	}
}

func (s *Scheduler) SetSender(sender MessageSender) {
	s.sender = sender
}

func (s *Scheduler) Start(ctx context.Context) error {
	parts := strings.Split(s.cfg.NotifyTime, ":")
	if len(parts) != 2 {
		return fmt.Errorf("invalid NOTIFY_TIME: %s", s.cfg.NotifyTime)
	}
	spec := fmt.Sprintf("%s %s * * *", parts[1], parts[0])

	if _, err := s.cron.AddFunc(spec, s.dailyTick); err != nil {
		return fmt.Errorf("add daily tick: %w", err)
	}

	s.cron.Start()
	log.Printf("Scheduler started (TZ: %s, notify at: %s)", s.cfg.Timezone, s.cfg.NotifyTime)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) dailyTick() {
	if s.sender == nil {
		return
	}
	s.RunDailyTick(context.Background(), time.Now())
}

// RunDailyTick processes one full pass over the store snapshot: 3 days
// before a birthday every other opted-in user gets a private reminder,
// 1 day before a "tomorrow" reminder, and on the day itself every
// gift-enabled group gets a public congratulation. Sends run as
// independent tasks; one recipient's failure never suppresses others.
func (s *Scheduler) RunDailyTick(ctx context.Context, now time.Time) {
	snap := s.storage.ReadAll(ctx)
	giftLink := snap.GiftLink()

	var wg sync.WaitGroup
	send := func(recipientID string, text string) {
		chatID, err := strconv.ParseInt(recipientID, 10, 64)
		if err != nil {
			log.Printf("Skip recipient with bad id %q: %v", recipientID, err)
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.sender.SendMessage(chatID, text); err != nil {
				log.Printf("Send to %d failed: %v", chatID, err)
			}
		}()
	}

	for _, person := range snap.Users {
		if !person.HasBirthday() {
			continue
		}

		switch dates.DaysUntil(person.Birthday, now) {
		case 3:
			for id, u := range snap.Users {
				if id == person.ID || !u.OptIn {
					continue
				}
				send(id, s.svc.ThreeDayReminder(person, giftLink))
			}
		case 1:
			for id, u := range snap.Users {
				if id == person.ID || !u.OptIn {
					continue
				}
				send(id, s.svc.TomorrowReminder(person))
			}
		case 0:
			for id, g := range snap.Groups {
				if !g.GiftsEnabled {
					continue
				}
				send(id, s.svc.Congratulation(person))
			}
		}
	}

	wg.Wait()
}
