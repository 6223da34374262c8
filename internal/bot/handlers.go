package bot

import (
	"context"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tazhate/surprisebot/internal/dates"
	"github.com/tazhate/surprisebot/internal/domain"
)

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	// Bare DD.MM in a private chat is treated as /mybd
	if msg.Chat.IsPrivate() {
		if ddmm, ok := dates.Normalize(text); ok {
			b.saveBirthday(ctx, msg, ddmm)
		}
	}
}

// reply sends text back to the chat the message came from
func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	if err := b.SendMessage(msg.Chat.ID, text); err != nil {
		log.Printf("Reply to %d failed: %v", msg.Chat.ID, err)
	}
}

// userMeta builds a record with the sender's identity, used by the
// implicit create-on-first-command upserts
func userMeta(from *tgbotapi.User) *domain.UserRecord {
	return &domain.UserRecord{
		ID:        strconv.FormatInt(from.ID, 10),
		Username:  from.UserName,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	}
}

// isChatAdmin reports whether the user is owner or administrator of
// the chat. Role lookup failures fail open: the action proceeds.
func (b *Bot) isChatAdmin(chatID, userID int64) bool {
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		log.Printf("Role lookup failed for user %d in chat %d, proceeding: %v", userID, chatID, err)
		return true
	}
	return member.Status == "creator" || member.Status == "administrator"
}
