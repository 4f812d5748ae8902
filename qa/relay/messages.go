package relay

import (
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/qarelay/core/telegram/callbacks"
	"github.com/m3rciful/qarelay/core/telegram/format"
	"github.com/m3rciful/qarelay/core/telegram/keyboard"
)

// AnswerAction is the callback key carried by the "Answer" button.
const AnswerAction = "answer"

const (
	answerButtonText    = "Ответить"
	answerInstruction   = "📝 Напишите свой ответ в одном сообщении."
	answerCallbackText  = "Напишите ваш ответ в следующем сообщении"
	answerConfirmation  = "✅ Ваш ответ отправлен автору вопроса!"
	alreadyAnsweredText = "На этот вопрос уже дан ответ."
	anonymousAuthor     = "Аноним"
	unnamedAuthor       = "Без имени"
	defaultWelcomeName  = "друг"
	startCommandCaption = "Начать работу с ботом"
)

// Formatter renders every user-facing text. All untrusted input passes
// through format.EscapeHTML here and nowhere else.
type Formatter struct {
	Location  *time.Location
	EventName string
}

// NewQuestionText renders the speaker notification for q.
func (f Formatter) NewQuestionText(speakerName string, q NewQuestion) string {
	from := "🤫 <b>От:</b> " + anonymousAuthor
	if !q.Anonymous {
		name := strings.TrimSpace(q.AskerName)
		if name == "" {
			name = unnamedAuthor
		}
		from = "🙋 <b>От:</b> " + format.EscapeHTML(name)
		if handle := normalizeHandle(q.AskerUsername); handle != "" {
			from += " (<code>@" + format.EscapeHTML(handle) + "</code>)"
		}
	}
	return strings.Join([]string{
		"📨 <b>Новый вопрос спикеру:</b> <i>" + format.EscapeHTML(speakerName) + "</i>",
		from,
		"🕒 <b>Когда:</b> " + format.Timestamp(q.CreatedAt, f.Location),
		"💬 <b>Вопрос:</b>\n" + format.EscapeHTML(q.Text),
	}, "\n\n")
}

// AnswerText renders the notification the asker receives.
func (f Formatter) AnswerText(questionText, speakerName, answer string, at time.Time) string {
	return strings.Join([]string{
		"✉️ <b>Ответ на ваш вопрос:</b> <i>" + format.EscapeHTML(questionText) + "</i>",
		"",
		"👤 <b>От:</b> " + format.EscapeHTML(speakerName),
		"🕒 <b>Время:</b> " + format.Timestamp(at, f.Location),
		"📩 <b>Ответ:</b> " + format.EscapeHTML(answer),
	}, "\n")
}

// WelcomeText renders the /start greeting.
func (f Formatter) WelcomeText(fullName string) string {
	name := strings.TrimSpace(fullName)
	if name == "" {
		name = defaultWelcomeName
	}
	return strings.Join([]string{
		"👋 Привет, " + format.EscapeHTML(name) + "!",
		"",
		"Это бот конференции " + format.EscapeHTML(f.EventName) + ".",
		"Нажмите на кнопку «Меню мероприятия» внизу, чтобы получить расписание, проголосовать за доклады или задать вопрос спикеру.",
		"",
		"Если что-то непонятно, пишите сюда в чат, я помогу!",
	}, "\n")
}

// AnswerMarkup builds the one-button keyboard whose payload names the question.
func AnswerMarkup(questionID string) (*tele.ReplyMarkup, error) {
	return keyboard.Inline(keyboard.Row(keyboard.Button{
		Text: answerButtonText,
		Data: callbacks.Data(AnswerAction, questionID),
	}))
}

// NormalizeChatID trims the stored chat id and strips one leading "@".
func NormalizeChatID(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "@")
}

func normalizeHandle(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "@")
}
