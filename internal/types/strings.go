package types

import (
	"regexp"
	"strings"
)

var (
	matchFirstCap = regexp.MustCompile("(.)([A-Z][a-z]+)")
	matchAllCap   = regexp.MustCompile("([a-z0-9])([A-Z])")
	nonAlphaNum   = regexp.MustCompile(`[^a-z0-9]+`)
)

// ToSnakeCase converts a string to snake_case.
// Separators such as dots and dashes become underscores.
func ToSnakeCase(input string) string {
	snake := matchFirstCap.ReplaceAllString(input, "${1}_${2}")
	snake = matchAllCap.ReplaceAllString(snake, "${1}_${2}")
	snake = strings.ToLower(snake)
	snake = nonAlphaNum.ReplaceAllString(snake, "_")
	return strings.Trim(snake, "_")
}

// ToEnvName converts a dotted config key to an environment variable name,
// e.g. cache.redis.address becomes CACHE_REDIS_ADDRESS.
func ToEnvName(key string) string {
	return strings.ToUpper(ToSnakeCase(key))
}
