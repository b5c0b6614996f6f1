// Package ioutils holds the file system and cover art helpers used when
// tracks are saved to disk.
package ioutils

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	invalidChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots = regexp.MustCompile(`\.+$`)
	spaces       = regexp.MustCompile(`\s+`)
)

// SanitizeFileName makes name usable as a single path element on every
// platform: reserved characters become "_", trailing dots are dropped and
// runs of whitespace collapse to one space.
//
//	SanitizeFileName("Song: Part 1/2")      // "Song_ Part 1_2"
//	SanitizeFileName("Track...")            // "Track"
//	SanitizeFileName("Name   with  spaces") // "Name with spaces"
func SanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = spaces.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// Expand replaces each {placeholder} of format with its sanitized value.
// Unknown placeholders are left as they are.
//
//	Expand("{tracknum} {title}.mp3", map[string]string{"tracknum": "01", "title": "a/b"})
//	// "01 a_b.mp3"
func Expand(format string, values map[string]string) string {
	pairs := make([]string, 0, 2*len(values))
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", SanitizeFileName(v))
	}
	return strings.NewReplacer(pairs...).Replace(format)
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers never see a partial file.
func WriteFileAtomic(path string, data []byte) error {
	return WriteFileAtomicPerm(path, data, 0o644)
}

// WriteFileAtomicPerm is WriteFileAtomic with explicit permissions.
func WriteFileAtomicPerm(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// EnsureDir creates path and its parents.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}
