package service

import (
	"context"
	"net/http"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"wallex_bot/internal/modules/config"
)

type sender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// Telegram шлёт уведомления в один чат. Без токена пишет их только в лог.
type Telegram struct {
	bot     sender
	chatID  int64
	timeout time.Duration
	log     *zap.Logger
}

func NewTelegram(cfg *config.Config, log *zap.Logger) (*Telegram, error) {
	return newTelegram(cfg.Telegram.Token, tgbot.APIEndpoint, cfg.Telegram.ChatID, cfg.Exchange.RequestTimeout, log)
}

func newTelegram(token, endpoint string, chatID int64, timeout time.Duration, log *zap.Logger) (*Telegram, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	t := &Telegram{chatID: chatID, timeout: timeout, log: log.Named("telegram")}
	if token == "" || chatID == 0 {
		t.log.Info("telegram token or chat id is empty, notifications go to log only")
		return t, nil
	}
	// у клиента по умолчанию нет таймаута
	b, err := tgbot.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, err
	}
	t.bot = b
	return t, nil
}

// Send не ждёт дольше timeout и дедлайна ctx: цикл торговли не должен висеть на Telegram.
func (t *Telegram) Send(ctx context.Context, msg string) error {
	t.log.Info("notify", zap.String("text", msg))
	if t.bot == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	m := tgbot.NewMessage(t.chatID, msg)
	m.ParseMode = tgbot.ModeMarkdown

	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(m)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "telegram send")
	}
}
