// messages.go contains message templates and formatting functions for Telegram.

package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mkamaev/tuneguess-bot/internal/domain/entities"
	"github.com/mkamaev/tuneguess-bot/internal/service"
)

const (
	msgWelcome = "Бот для автоматической игры в музыкальную викторину.\n\n" +
		"/status — состояние сессии\n" +
		"/play N — сыграть N раундов сейчас\n" +
		"/schedule 21:30 2 — запланировать 2 раунда на 21:30\n" +
		"/cancel — отменить план\n" +
		"/stop — остановить игру\n" +
		"/token токен — задать токен доступа\n" +
		"/question — показать вопрос, ожидающий ответа\n" +
		"/answer текст — ответить на вопрос (/answer nosave текст — без сохранения)"
	msgUnknownCommand = "Неизвестная команда. Отправьте /help для списка команд."
	msgInternalError  = "Что-то пошло не так. Попробуйте позже."

	msgUsePlay     = "Используйте: /play 2."
	msgUseSchedule = "Используйте: /schedule 21:30 2 или /schedule 1767214800000 2."
	msgUseToken    = "Используйте: /token <токен>."
	msgUseAnswer   = "Используйте: /answer <текст> или /answer nosave <текст>."

	msgBusy           = "Сессия уже запущена или запланирована."
	msgNoToken        = "Токен доступа не задан. Отправьте /token <токен>."
	msgNotScheduled   = "Сейчас ничего не запланировано."
	msgNotRunning     = "Сейчас нет активной игры."
	msgNoPending      = "Сейчас нет вопроса, ожидающего ответа."
	msgAnswerRejected = "Такого варианта нет среди ответов на текущий вопрос."

	msgRunStarted        = "Игра запущена."
	msgRunStopped        = "Игра остановлена."
	msgScheduleCancelled = "План отменён."
	msgTokenSaved        = "Токен сохранён."
	msgAnswerAccepted    = "Ответ принят."
)

var phaseLabels = map[entities.Phase]string{
	entities.PhaseIdle:          "ожидание",
	entities.PhaseScheduled:     "запланирована",
	entities.PhaseRunning:       "идёт игра",
	entities.PhaseAwaitingHuman: "ждёт ответа оператора",
	entities.PhaseAwaitingToken: "нужен токен",
}

func phaseLabel(p entities.Phase) string {
	if label, ok := phaseLabels[p]; ok {
		return label
	}
	return string(p)
}

func formatStatus(st service.Status) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>Состояние:</b> %s\n", phaseLabel(st.Phase))
	if st.ScheduledAt != nil {
		fmt.Fprintf(&b, "<b>Старт:</b> %s\n", st.ScheduledAt.Format("02.01 15:04"))
	}
	b.WriteString("\n")
	b.WriteString(formatStats(st.Stats))
	fmt.Fprintf(&b, "\n<b>Ответов в кэше:</b> %d", st.CacheSize)

	if st.Pending != nil {
		b.WriteString("\n\n")
		b.WriteString(formatPending(*st.Pending))
	}

	return b.String()
}

func formatStats(stats entities.RoundStats) string {
	return fmt.Sprintf(
		"<b>Раундов:</b> %d\n<b>Вопросов:</b> %d\n<b>Верных:</b> %d\n<b>Ошибок:</b> %d",
		stats.Rounds,
		stats.Questions,
		stats.Correct,
		stats.Errors,
	)
}

func formatPending(p entities.PendingQuestion) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>Раунд %d, вопрос %d</b>\n", p.Round, p.Number)
	fmt.Fprintf(&b, "%s\n", html.EscapeString(p.Question.Text))
	if p.Question.Title != "" {
		fmt.Fprintf(&b, "<b>Трек:</b> %s\n", html.EscapeString(p.Question.Title))
	}
	b.WriteString("\nВарианты:\n")
	for i, opt := range p.Question.Options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, html.EscapeString(opt))
	}

	return b.String()
}

func formatScheduled(at time.Time, rounds int) string {
	return fmt.Sprintf("Запланировано: %d раунд(ов) в %s.", rounds, at.Format("02.01 15:04"))
}

func formatRunFinished(stats entities.RoundStats, aborted bool) string {
	header := "Игра завершена."
	if aborted {
		header = "Игра прервана."
	}
	return header + "\n\n" + formatStats(stats)
}

func formatDigest(cacheSize int, last *entities.RunRecord) string {
	var b strings.Builder

	b.WriteString("<b>Ежедневная сводка</b>\n")
	fmt.Fprintf(&b, "Ответов в кэше: %d\n", cacheSize)

	if last == nil {
		b.WriteString("Игр пока не было.")
		return b.String()
	}

	fmt.Fprintf(&b, "Последняя игра %s: раундов %d, вопросов %d, верных %d, ошибок %d",
		last.FinishedAt.Format("02.01 15:04"),
		last.Rounds,
		last.Questions,
		last.Correct,
		last.Errors,
	)
	if last.Aborted {
		b.WriteString(" (прервана)")
	}

	return b.String()
}

// buildOptionsKeyboard renders one button per answer option.
func buildOptionsKeyboard(options []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(options))
	for i, opt := range options {
		btn := tgbotapi.NewInlineKeyboardButtonData(opt, fmt.Sprintf("ans:%d", i))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(btn))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func newHTMLMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return msg
}
