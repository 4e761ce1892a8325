package validation

import (
	"strings"
	"unicode"
)

// Normalize приводит текст нарушения к пользовательскому виду:
// убирает двойные кавычки и переводит первый символ в верхний регистр.
// Чистая функция, не зависящая от формы ошибок валидатора.
func Normalize(message string) string {
	stripped := strings.ReplaceAll(message, `"`, "")
	if stripped == "" {
		return stripped
	}
	runes := []rune(stripped)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
