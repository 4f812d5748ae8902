package helpers

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// FullName joins first and last name, skipping blanks.
func FullName(u *tele.User) string {
	if u == nil {
		return ""
	}
	var parts []string
	for _, p := range []string{u.FirstName, u.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// UserKey renders a Telegram user id the way it is stored in participant rows.
func UserKey(u *tele.User) string {
	if u == nil || u.ID == 0 {
		return ""
	}
	return strconv.FormatInt(u.ID, 10)
}
