package choices

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/danieljhkim/pinrun/internal/hash"
)

// contextKeyLen is the number of hex digits kept from a configuration hash.
const contextKeyLen = 16

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// KeyFromFile derives a context key from the content of a configuration file,
// so runs launched from identical configuration share decisions.
func KeyFromFile(hasher hash.Hasher, path string) (string, error) {
	sum, err := hasher.HashFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to hash context file: %w", err)
	}
	return "cfg-" + sum[:contextKeyLen], nil
}

// SanitizeKey turns a free-form name into a usable context key.
func SanitizeKey(name string) string {
	key := unsafeKeyChars.ReplaceAllString(strings.TrimSpace(name), "-")
	key = strings.Trim(key, "-.")
	return key
}

// KeyFromPath derives a context key from a directory path, for runs launched
// without a configuration file.
func KeyFromPath(hasher hash.Hasher, path string) string {
	return "dir-" + hasher.HashString(path)[:contextKeyLen]
}
