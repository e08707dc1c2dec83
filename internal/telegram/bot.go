package telegram

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ledger-chat/internal/auth"
	"ledger-chat/internal/chat"
)

const (
	resetCmd     = "reset_ctx"
	bannerLogged = "✅ ¡Datos enviados correctamente!"
	bannerReset  = "Historial limpiado ✅"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type botAPISender struct{ api *tgbotapi.BotAPI }

func (s botAPISender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return s.api.Send(c)
}

// Bot is a Telegram front-end over the chat controller. Every chat gets its
// own session.
type Bot struct {
	api        *tgbotapi.BotAPI
	s          sender
	authSvc    *auth.Service
	controller *chat.Controller
	sessions   *chat.Manager
}

func New(botToken string, authSvc *auth.Service, controller *chat.Controller, sessions *chat.Manager) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:        api,
		s:          botAPISender{api: api},
		authSvc:    authSvc,
		controller: controller,
		sessions:   sessions,
	}, nil
}

// Start polls for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	log.Printf("🤖 Telegram bot @%s started (%s)", b.api.Self.UserName, b.accessMode())

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				b.handleIncomingMessage(ctx, update.Message)
				continue
			}
			if update.CallbackQuery != nil {
				b.handleCallback(update.CallbackQuery)
			}
		}
	}
}

func (b *Bot) accessMode() string {
	if b.authSvc.Restricted() {
		return "allowlist active"
	}
	return "open to everyone"
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("tg-%d", chatID)
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if !b.authSvc.IsAllowed(msg.From.ID) {
		log.Printf("Unauthorized access attempt by user ID: %d, username: @%s", msg.From.ID, msg.From.UserName)
		b.sendMessage(msg.Chat.ID, "No tenés acceso a este bot.")
		return
	}

	sess := b.sessions.GetOrCreate(sessionKey(msg.Chat.ID))

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.sendMessage(msg.Chat.ID, "¡Hola! Escribí tu mensaje.")
		case "reset":
			b.controller.Reset(sess, b.sessions.Instruction())
			b.sendMessage(msg.Chat.ID, bannerReset)
		default:
			b.sendMessage(msg.Chat.ID, "Comando desconocido.")
		}
		return
	}

	log.Printf("Incoming message from %d (@%s)", msg.From.ID, msg.From.UserName)

	res, err := b.controller.Handle(ctx, sess, msg.Text)
	if err != nil && res.Reply == "" {
		b.sendMessage(msg.Chat.ID, "⚠️ "+err.Error())
		return
	}

	final := res.Reply
	if res.Logged {
		final += "\n\n" + bannerLogged
	}
	if err != nil {
		final += "\n\n❌ " + err.Error()
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧹 Limpiar historial", resetCmd),
		),
	)

	msgOut := tgbotapi.NewMessage(msg.Chat.ID, final)
	msgOut.ReplyMarkup = kb
	if _, err := b.s.Send(msgOut); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	if cb.Data != resetCmd || cb.Message == nil {
		return
	}
	if cb.From != nil && !b.authSvc.IsAllowed(cb.From.ID) {
		return
	}
	sess := b.sessions.GetOrCreate(sessionKey(cb.Message.Chat.ID))
	b.controller.Reset(sess, b.sessions.Instruction())
	b.sendMessage(cb.Message.Chat.ID, bannerReset)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.s.Send(msg); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}
