package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wallex_bot/internal/models"
	"wallex_bot/internal/modules/config"
)

type fakeBot struct{ sent []tgbot.MessageConfig }

func (f *fakeBot) Send(c tgbot.Chattable) (tgbot.Message, error) {
	f.sent = append(f.sent, c.(tgbot.MessageConfig))
	return tgbot.Message{}, nil
}

func TestLogOnlyWithoutToken(t *testing.T) {
	tg, err := NewTelegram(&config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, tg.Send(context.Background(), "hello"))
}

func TestSendGoesToChat(t *testing.T) {
	bot := &fakeBot{}
	tg := &Telegram{bot: bot, chatID: 42, timeout: time.Second, log: zap.NewNop()}

	require.NoError(t, tg.Send(context.Background(), "order bot-1"))
	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(42), bot.sent[0].ChatID)
	assert.Equal(t, "order bot-1", bot.sent[0].Text)
}

// API отвечает на getMe, но sendMessage висит, пока клиент не оборвёт соединение.
func hangingAPI(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bot","username":"bot"}}`)
			return
		}
		// тело надо дочитать: иначе сервер не заметит обрыв соединения и Close зависнет
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/bot%s/%s"
}

func TestSendStopsAtContextDeadline(t *testing.T) {
	tg, err := newTelegram("token", hangingAPI(t), 42, time.Second, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = tg.Send(ctx, "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestSendStopsAtClientTimeout(t *testing.T) {
	tg, err := newTelegram("token", hangingAPI(t), 42, 300*time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	start := time.Now()
	require.Error(t, tg.Send(context.Background(), "hello"))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFormatOutcome(t *testing.T) {
	d := models.PriceDecision{Side: models.SideBuy, OrderPrice: 100, StopLossPrice: 90, TakeProfitPrice: 130}

	placed := FormatOutcome("SHIBTMN", d, models.OrderOutcome{Placed: true, ClientOrderID: "bot-1", Reason: models.ReasonPlaced}, "100.00")
	assert.Contains(t, placed, "📈 BUY SHIBTMN")
	assert.Contains(t, placed, "RR: `3.00`")
	assert.Contains(t, placed, "SL: `90`")

	stale := FormatOutcome("SHIBTMN", d, models.OrderOutcome{Reason: models.ReasonStaleOrderOpen, Cancelled: []string{"a"}}, "100")
	assert.Contains(t, stale, "stale_order_open")
	assert.Contains(t, stale, "Отменено: `1`")
}

func TestFormatOrderDone(t *testing.T) {
	msg := FormatOrderDone(models.Order{
		ClientOrderID: "bot-1", Symbol: "SHIBTMN", Side: models.SideSell,
		Status: models.OrderStatusFilled, Quantity: 1000, ExecutedQty: 1000,
	})
	assert.Contains(t, msg, "🟢 SELL SHIBTMN")
	assert.Contains(t, msg, "Исполнено: `1000` из `1000`")
}
