package bot

import (
	"context"
	"fmt"
	"log"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tazhate/surprisebot/config"
	"github.com/tazhate/surprisebot/internal/service"
	"github.com/tazhate/surprisebot/internal/storage"
)

// telegramAPI is the slice of *tgbotapi.BotAPI the handlers need,
// kept small so tests can substitute a fake.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

type Bot struct {
	api     telegramAPI
	client  *tgbotapi.BotAPI
	cfg     *config.Config
	storage storage.Store
	svc     *service.BirthdayService
	server  *http.Server
}

func New(cfg *config.Config, store storage.Store, svc *service.BirthdayService) (*Bot, error) {
	client, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("Authorized as @%s", client.Self.UserName)

	bot := &Bot{
		api:     client,
		client:  client,
		cfg:     cfg,
		storage: store,
		svc:     svc,
	}

	// Set bot commands (menu button)
	bot.setCommands()

	return bot, nil
}

func (b *Bot) setCommands() {
	commands := []tgbotapi.BotCommand{
		{Command: "mybd", Description: "🎂 Моя дата рождения (DD.MM)"},
		{Command: "optin", Description: "🔔 Получать напоминания в ЛС"},
		{Command: "upcoming", Description: "📋 Ближайшие дни рождения"},
		{Command: "calendar", Description: "📅 Календарь дней рождения (.ics)"},
		{Command: "setup_gifts", Description: "🎁 Включить режим подарков (админ)"},
		{Command: "giftlink", Description: "💸 Ссылка на сбор (админ)"},
		{Command: "help", Description: "❓ Справка по командам"},
	}

	cfg := tgbotapi.NewSetMyCommands(commands...)
	if _, err := b.api.Request(cfg); err != nil {
		log.Printf("Failed to set commands: %v", err)
	}
}

// SetupWebhook registers the webhook when WEBHOOK_URL is configured;
// otherwise the bot falls back to long polling in Start.
func (b *Bot) SetupWebhook() error {
	if b.cfg.WebhookURL == "" {
		return nil
	}

	webhookURL := b.cfg.WebhookURL + "/bot"

	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("create webhook: %w", err)
	}

	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	info, err := b.client.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("get webhook info: %w", err)
	}
	if info.LastErrorDate != 0 {
		log.Printf("Webhook last error: %s", info.LastErrorMessage)
	}

	log.Printf("Webhook set to: %s", webhookURL)
	return nil
}

func (b *Bot) Start(ctx context.Context) error {
	var updates tgbotapi.UpdatesChannel
	if b.cfg.WebhookURL != "" {
		updates = b.client.ListenForWebhook("/bot")
	} else {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 30
		updates = b.client.GetUpdatesChan(u)
		log.Println("Polling for updates")
	}

	// Health check endpoint
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	b.server = &http.Server{
		Addr:    ":" + b.cfg.ServerPort,
		Handler: nil, // use DefaultServeMux
	}

	go func() {
		log.Printf("Starting HTTP server on :%s", b.cfg.ServerPort)
		if err := b.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) Stop(ctx context.Context) error {
	if b.client != nil {
		b.client.StopReceivingUpdates()
	}
	if b.server != nil {
		return b.server.Shutdown(ctx)
	}
	return nil
}

func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	return err
}
