package utils

import "github.com/microcosm-cc/bluemonday"

var sanitizer = bluemonday.UGCPolicy()

// Sanitize cleans submitted post text to prevent XSS attacks.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
