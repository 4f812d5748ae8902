package callbacks

import "strings"

// Separator divides the key from the payload in callback data, as in "answer:<id>".
const Separator = ":"

// ParseData splits raw callback data into key and payload.
// Telebot's "\f<unique>|<payload>" encoding is accepted as well.
func ParseData(data string) (string, string) {
	if strings.HasPrefix(data, "\f") {
		key, payload, _ := strings.Cut(strings.TrimPrefix(data, "\f"), "|")
		return strings.TrimSpace(key), payload
	}
	key, payload, _ := strings.Cut(data, Separator)
	return strings.TrimSpace(key), payload
}

// Data encodes key and payload the way ParseData reads them.
func Data(key, payload string) string {
	return key + Separator + payload
}
