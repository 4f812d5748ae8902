// Package keyboard builds inline keyboards whose callback data reaches the
// webhook unchanged.
package keyboard

import (
	"fmt"

	tele "gopkg.in/telebot.v4"
)

// MaxCallbackData is the Bot API limit for callback_data, in bytes.
const MaxCallbackData = 64

// Button is one inline button. Exactly one of Data and URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Row groups buttons shown side by side.
func Row(buttons ...Button) []Button {
	return buttons
}

// Inline assembles an inline keyboard. Unique stays empty on every button so
// Telegram echoes Data back verbatim.
func Inline(rows ...[]Button) (*tele.ReplyMarkup, error) {
	markup := &tele.ReplyMarkup{InlineKeyboard: make([][]tele.InlineButton, 0, len(rows))}
	for i, row := range rows {
		out := make([]tele.InlineButton, 0, len(row))
		for j, b := range row {
			if err := b.validate(); err != nil {
				return nil, fmt.Errorf("keyboard: row %d button %d: %w", i+1, j+1, err)
			}
			out = append(out, tele.InlineButton{Text: b.Text, Data: b.Data, URL: b.URL})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, out)
	}
	return markup, nil
}

func (b Button) validate() error {
	switch {
	case b.Text == "":
		return fmt.Errorf("empty text")
	case (b.Data == "") == (b.URL == ""):
		return fmt.Errorf("%q needs exactly one of data or url", b.Text)
	case len(b.Data) > MaxCallbackData:
		return fmt.Errorf("%q callback data is %d bytes, limit %d", b.Text, len(b.Data), MaxCallbackData)
	}
	return nil
}
