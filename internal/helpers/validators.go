package helpers

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	appNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)
	// Same character set docker accepts for an image tag.
	tagRegex = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]{0,127}$`)
)

func IsValidAppName(name string) bool {
	return appNameRegex.MatchString(name)
}

func IsValidTag(tag string) bool {
	return tagRegex.MatchString(tag)
}

// ValidateURLPath checks that path is usable as the path component of a probe URL.
func ValidateURLPath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path must start with a slash")
	}
	if strings.ContainsAny(path, " \t\n") {
		return fmt.Errorf("path cannot contain whitespace")
	}
	return nil
}
