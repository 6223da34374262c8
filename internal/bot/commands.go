package bot

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tazhate/surprisebot/internal/dates"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())

	switch cmd {
	case "start":
		b.cmdStart(ctx, msg)
	case "help":
		b.cmdHelp(msg)
	case "mybd":
		b.cmdMybd(ctx, msg, args)
	case "optin":
		b.cmdOptin(ctx, msg)
	case "setup_gifts":
		b.cmdSetupGifts(ctx, msg)
	case "giftlink":
		b.cmdGiftLink(ctx, msg, args)
	case "upcoming":
		b.cmdUpcoming(ctx, msg, args)
	case "calendar":
		b.cmdCalendar(ctx, msg)
	default:
		if msg.Chat.IsPrivate() {
			b.reply(msg, "Неизвестная команда. /help для списка команд")
		}
	}
}

func (b *Bot) cmdStart(ctx context.Context, msg *tgbotapi.Message) {
	if err := b.storage.UpsertUser(ctx, userMeta(msg.From)); err != nil {
		log.Printf("Upsert user %d failed: %v", msg.From.ID, err)
	}
	b.reply(msg, "Привет! Я Surprise Chat Bot. Напиши мне свою дату рождения в формате DD.MM.\n\n/help — список команд")
}

func (b *Bot) cmdHelp(msg *tgbotapi.Message) {
	text := `Команды:

/mybd DD.MM — сохранить дату рождения, например /mybd 03.11
/optin — разрешить напоминания в ЛС за 3 и 1 день
/upcoming [N] — ближайшие дни рождения
/calendar — календарь дней рождения файлом (.ics)

В групповом чате (только для администраторов):
/setup_gifts — включить поздравления в чате
/giftlink URL — ссылка на сбор на подарок`

	b.reply(msg, text)
}

func (b *Bot) cmdMybd(ctx context.Context, msg *tgbotapi.Message, args string) {
	ddmm, ok := dates.Normalize(args)
	if !ok {
		b.reply(msg, "Укажите дату в формате DD.MM, например: /mybd 03.11")
		return
	}
	b.saveBirthday(ctx, msg, ddmm)
}

// saveBirthday is shared by /mybd and the bare-date private message path
func (b *Bot) saveBirthday(ctx context.Context, msg *tgbotapi.Message, ddmm string) {
	id := strconv.FormatInt(msg.From.ID, 10)

	if err := b.storage.UpsertUser(ctx, userMeta(msg.From)); err != nil {
		log.Printf("Upsert user %s failed: %v", id, err)
		b.reply(msg, "Не получилось сохранить, попробуйте позже.")
		return
	}
	if err := b.storage.SetBirthday(ctx, id, ddmm); err != nil {
		log.Printf("Set birthday for %s failed: %v", id, err)
		b.reply(msg, "Не получилось сохранить, попробуйте позже.")
		return
	}

	b.reply(msg, "Сохранил вашу дату рождения: "+ddmm)
}

func (b *Bot) cmdOptin(ctx context.Context, msg *tgbotapi.Message) {
	id := strconv.FormatInt(msg.From.ID, 10)

	if err := b.storage.SetOptin(ctx, id, true, userMeta(msg.From)); err != nil {
		log.Printf("Set optin for %s failed: %v", id, err)
		b.reply(msg, "Не получилось сохранить, попробуйте позже.")
		return
	}

	b.reply(msg, "Готово! Я смогу писать вам в ЛС с напоминаниями.")
}

func (b *Bot) cmdSetupGifts(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat.IsPrivate() {
		b.reply(msg, "Эта команда работает только в групповом чате.")
		return
	}
	if !b.isChatAdmin(msg.Chat.ID, msg.From.ID) {
		b.reply(msg, "Только администратор может включить режим подарков.")
		return
	}

	groupID := strconv.FormatInt(msg.Chat.ID, 10)
	if err := b.storage.EnableGifts(ctx, groupID); err != nil {
		log.Printf("Enable gifts for %s failed: %v", groupID, err)
		b.reply(msg, "Не получилось сохранить, попробуйте позже.")
		return
	}

	b.reply(msg, "Режим подарков включен. Я напомню в ЛС за 3 и 1 день и поздравлю в чате.")
}

func (b *Bot) cmdGiftLink(ctx context.Context, msg *tgbotapi.Message, args string) {
	if msg.Chat.IsPrivate() {
		b.reply(msg, "Эта команда работает только в групповом чате.")
		return
	}
	if !b.isChatAdmin(msg.Chat.ID, msg.From.ID) {
		b.reply(msg, "Только администратор может установить ссылку на сбор.")
		return
	}
	if !strings.HasPrefix(args, "http://") && !strings.HasPrefix(args, "https://") {
		b.reply(msg, "Укажите ссылку, начинающуюся с http:// или https://, например: /giftlink https://example.com/box")
		return
	}

	groupID := strconv.FormatInt(msg.Chat.ID, 10)
	if err := b.storage.SetGiftLink(ctx, groupID, args); err != nil {
		log.Printf("Set gift link for %s failed: %v", groupID, err)
		b.reply(msg, "Не получилось сохранить, попробуйте позже.")
		return
	}

	b.reply(msg, "Сохранил ссылку на сбор. Режим подарков включен.")
}

func (b *Bot) cmdUpcoming(ctx context.Context, msg *tgbotapi.Message, args string) {
	limit := 0
	if args != "" {
		if n, err := strconv.Atoi(args); err == nil {
			limit = n
		}
	}

	entries := b.svc.ListUpcoming(ctx, time.Now(), limit)
	b.reply(msg, b.svc.FormatUpcoming(entries))
}

func (b *Bot) cmdCalendar(ctx context.Context, msg *tgbotapi.Message) {
	data, err := b.svc.CalendarICS(ctx, time.Now())
	if err != nil {
		b.reply(msg, "Пока нет данных о днях рождения. Отправьте мне /mybd DD.MM в личку!")
		return
	}

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{
		Name:  "birthdays.ics",
		Bytes: data,
	})
	if _, err := b.api.Send(doc); err != nil {
		log.Printf("Send calendar to %d failed: %v", msg.Chat.ID, err)
	}
}
