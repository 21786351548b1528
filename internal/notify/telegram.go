// Package notify delivers reservation news to owners, customers and
// administrators over Telegram.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/Eo-0118/Black-Kingdom/internal/events"
	"github.com/Eo-0118/Black-Kingdom/internal/models"
	"github.com/Eo-0118/Black-Kingdom/shared/reminders"
)

// maxMessageLen is Telegram's limit for a text message.
const maxMessageLen = 4096

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

type ShopLookup interface {
	GetShop(ctx context.Context, id int64) (*models.Shop, error)
}

// Telegram sends notifications through a bot account.
type Telegram struct {
	bot      TelegramSender
	users    UserLookup
	shops    ShopLookup
	adminIDs []int64
	logger   zerolog.Logger
}

// NewTelegram wires a notifier. adminIDs receive audit reports.
func NewTelegram(bot TelegramSender, users UserLookup, shops ShopLookup, adminIDs []int64, logger zerolog.Logger) *Telegram {
	return &Telegram{
		bot:      bot,
		users:    users,
		shops:    shops,
		adminIDs: adminIDs,
		logger:   logger.With().Str("component", "notify").Logger(),
	}
}

// SendReminder messages the customer about an upcoming visit. Customers
// without a linked chat are skipped.
func (t *Telegram) SendReminder(ctx context.Context, r models.Reservation) error {
	chatID, err := t.customerChat(ctx, r.CustomerID)
	if err != nil || chatID == 0 {
		return err
	}

	shopName := fmt.Sprintf("shop #%d", r.ShopID)
	if shop, err := t.shops.GetShop(ctx, r.ShopID); err == nil {
		shopName = shop.Name
	}
	return t.send(tgbotapi.NewMessage(chatID, FormatReminder(r, shopName)))
}

// SendDigest sends the owner the day's seatings, split across messages
// when the list is long.
func (t *Telegram) SendDigest(_ context.Context, shop models.Shop, day string, rows []models.ShopReservation) error {
	if shop.OwnerChatID == 0 {
		return nil
	}
	for _, chunk := range SplitMessage(FormatDigest(shop, day, rows), maxMessageLen) {
		if err := t.send(tgbotapi.NewMessage(shop.OwnerChatID, chunk)); err != nil {
			return err
		}
	}
	return nil
}

// SendDocument sends a file to every administrator chat.
func (t *Telegram) SendDocument(_ context.Context, filename string, data io.Reader, caption string) error {
	if len(t.adminIDs) == 0 {
		return nil
	}
	content, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	var errs []error
	for _, chatID := range t.adminIDs {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: bytes.Clone(content)})
		doc.Caption = caption
		if err := t.send(doc); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// OnReservationCreated tells the shop owner about a new request.
func (t *Telegram) OnReservationCreated(e events.Event) error {
	var payload events.ReservationCreatedPayload
	if err := e.Decode(&payload); err != nil {
		return err
	}
	r := payload.Reservation

	shop, err := t.shops.GetShop(context.Background(), r.ShopID)
	if err != nil {
		return fmt.Errorf("load shop %d: %w", r.ShopID, err)
	}
	if shop.OwnerChatID == 0 {
		return nil
	}
	return t.send(tgbotapi.NewMessage(shop.OwnerChatID, FormatNewReservation(*shop, r)))
}

// OnStatusChanged tells the customer their reservation moved.
func (t *Telegram) OnStatusChanged(e events.Event) error {
	var payload events.StatusChangedPayload
	if err := e.Decode(&payload); err != nil {
		return err
	}

	chatID, err := t.customerChat(context.Background(), payload.Reservation.CustomerID)
	if err != nil || chatID == 0 {
		return err
	}
	return t.send(tgbotapi.NewMessage(chatID, FormatStatusChange(payload.Reservation, payload.To)))
}

func (t *Telegram) customerChat(ctx context.Context, userID int64) (int64, error) {
	user, err := t.users.GetUserByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load customer %d: %w", userID, err)
	}
	if user.TelegramChatID == 0 {
		t.logger.Debug().Int64("user_id", userID).Msg("customer has no telegram chat")
	}
	return user.TelegramChatID, nil
}

func (t *Telegram) send(c tgbotapi.Chattable) error {
	_, err := t.bot.Send(c)
	return translateError(err)
}

// translateError maps Bot API failures onto reminders.TelegramError.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return &reminders.TelegramError{
			Code:       apiErr.Code,
			Message:    apiErr.Message,
			RetryAfter: apiErr.RetryAfter,
		}
	}
	return err
}

// SplitMessage breaks text on line boundaries into pieces no longer than
// limit. A single line longer than limit is cut.
func SplitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var b strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if b.Len() > 0 {
				chunks = append(chunks, b.String())
				b.Reset()
			}
			chunks = append(chunks, line[:limit])
			line = line[limit:]
		}
		if b.Len()+len(line) > limit {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		b.WriteString(line)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}
