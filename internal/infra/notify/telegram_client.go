package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements notify.Gateway over a Telegram bot, for salons
// that reach clients on Telegram instead of WhatsApp. The recipient
// identifier is the client's chat id in string form.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendTemplate renders the template and positional parameters to plain text
// and sends it. The returned id is the Telegram message id; delivery status
// callbacks do not exist on this channel, so the tracker reports such
// messages as pending indefinitely.
func (tba *TelebotAdapter) SendTemplate(ctx context.Context, recipient, templateName string, params []string) (string, error) {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return "", fmt.Errorf("telegram recipient %q is not a chat id: %w", recipient, err)
	}

	text := renderTemplate(templateName, params)
	msg, err := tba.bot.Send(&telebot.User{ID: chatID}, text, &telebot.SendOptions{})
	if err != nil {
		return "", fmt.Errorf("sending telegram message: %w", err)
	}
	return strconv.Itoa(msg.ID), nil
}

func renderTemplate(templateName string, params []string) string {
	switch templateName {
	case "appointment_reminder_24h":
		if len(params) >= 3 {
			return fmt.Sprintf("Hi %s! A reminder about your appointment on %s at %s.", params[0], params[1], params[2])
		}
	case "appointment_reminder_next_day":
		if len(params) >= 4 {
			return fmt.Sprintf("Hi %s! You have %s booked tomorrow (%s) at %s. See you there!", params[0], params[3], params[1], params[2])
		}
	}
	return templateName + ": " + strings.Join(params, ", ")
}
