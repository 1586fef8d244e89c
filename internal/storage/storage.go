// Package storage persists uploaded food images.
//
// Images are referenced from food items by a relative path of the form
// "uploads/<name>", independent of where the bytes actually live.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// RefPrefix starts every image reference.
const RefPrefix = "uploads/"

// ErrInvalidFilename is returned when nothing usable is left after sanitizing a filename.
var ErrInvalidFilename = errors.New("storage: invalid filename")

// ImageStore saves uploaded images and resolves references to URLs.
type ImageStore interface {
	// Save stores body under the sanitized filename and returns its reference.
	// An existing image with the same name is replaced and created is false;
	// such an image belongs to someone else and must not be deleted on rollback.
	Save(ctx context.Context, filename string, body io.Reader) (ref string, created bool, err error)
	// Delete removes the image behind ref. Missing images are not an error.
	Delete(ctx context.Context, ref string) error
	// URL returns the address browsers load ref from.
	URL(ref string) string
}

// SanitizeFilename reduces name to a flat ASCII filename: path separators and
// whitespace become underscores, other characters outside [A-Za-z0-9_.-] are
// dropped, and leading or trailing dots and underscores are trimmed. The result
// may be empty.
func SanitizeFilename(name string) string {
	name = norm.NFKD.String(name)
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return ' '
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), "_")

	var b strings.Builder
	for _, r := range name {
		if r == '_' || r == '.' || r == '-' ||
			('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._")
}

// Ref returns the reference for a sanitized filename, or "" when the name is unusable.
// A leading "uploads/" in name is accepted and not doubled.
func Ref(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), RefPrefix)
	clean := SanitizeFilename(name)
	if clean == "" {
		return ""
	}
	return RefPrefix + clean
}

// nameFromRef returns the filename part of a reference.
func nameFromRef(ref string) (string, bool) {
	if !strings.HasPrefix(ref, RefPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(ref, RefPrefix)
	if name == "" || SanitizeFilename(name) != name {
		return "", false
	}
	return name, true
}
