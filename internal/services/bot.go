package services

import (
	"fmt"
	"os"
	"time"

	tele "gopkg.in/telebot.v3"

	initdata "github.com/telegram-mini-apps/init-data-golang"

	"stargift/internal/models"
)

type Bot struct {
	token string
}

func NewBot(token string) (*Bot, error) {
	return &Bot{token}, nil
}

func (bot *Bot) ValidateInitData(dataStr string) (*models.UserFromAuth, error) {
	err := initdata.Validate(dataStr, bot.token, 0)
	if err != nil {
		return nil, err
	}

	data, err := initdata.Parse(dataStr)
	if err != nil {
		return nil, err
	}

	return &models.UserFromAuth{
		ID:           data.User.ID,
		Username:     data.User.Username,
		FirstName:    data.User.FirstName,
		LastName:     data.User.LastName,
		IsBot:        data.User.IsBot,
		IsPremium:    data.User.IsPremium,
		LanguageCode: data.User.LanguageCode,
		PhotoURL:     data.User.PhotoURL,
	}, nil
}

// SendPurchaseReceipt DMs the buyer after a successful purchase. Best
// effort, a delivery failure never fails the purchase.
func (bot *Bot) SendPurchaseReceipt(chatID int64, purchase *models.Purchase) error {
	pref := tele.Settings{
		Token:  bot.token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return err
	}

	var text string
	if purchase.Kind == models.ProductPremium {
		text = fmt.Sprintf("🌟 Telegram Premium (%d months) sent to @%s\n\nTransaction: <code>%s</code>", purchase.Amount, purchase.Handle, purchase.TxHash)
	} else {
		text = fmt.Sprintf("⭐ %d Telegram Stars sent to @%s\n\nTransaction: <code>%s</code>", purchase.Amount, purchase.Handle, purchase.TxHash)
	}

	_, err = b.Send(&tele.User{ID: chatID}, text, &tele.SendOptions{
		ParseMode: tele.ModeHTML,
		ReplyMarkup: &tele.ReplyMarkup{
			InlineKeyboard: [][]tele.InlineButton{
				{{Text: "🎁 Send another gift", WebApp: &tele.WebApp{URL: os.Getenv("TELEGRAM_WEB_APP_URL")}}},
			},
		},
	})
	if err != nil {
		return err
	}

	return nil
}
