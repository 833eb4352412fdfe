package fetch

import (
	"fmt"
	"unicode/utf8"

	apperrors "github.com/agbru/concfetch/internal/errors"
)

// DecodeText returns body as text. Bodies that are not valid UTF-8 fail with
// an apperrors.DecodeError carrying label.
func DecodeText(label int, body []byte) (string, error) {
	if !utf8.Valid(body) {
		return "", apperrors.DecodeError{Label: label, Cause: fmt.Errorf("invalid UTF-8 at byte %d", firstInvalid(body))}
	}
	return string(body), nil
}

func firstInvalid(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(b)
}
