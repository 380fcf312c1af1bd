package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// ErrInvalidKey is returned for source keys that could escape the source
// directory or name a non-image file
var ErrInvalidKey = errors.New("invalid key")

var imageExts = []string{"jpg", "jpeg", "png", "gif", "bmp", "tiff", "webp"}

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// GetFileExtension returns the lower-cased file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// IsImageFile checks if a file has an image extension
func IsImageFile(filename string) bool {
	return slices.Contains(imageExts, GetFileExtension(filename))
}

// GenerateOutputFilename builds dir/<name><suffix>.<format> for an input
// path or URL. An empty format keeps the input extension.
func GenerateOutputFilename(input, outputDir, suffix, format string) string {
	base := path.Base(filepath.ToSlash(input))
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	name := SanitizeFilename(strings.TrimSuffix(base, path.Ext(base)))
	if name == "" {
		name = "image"
	}

	if format == "" {
		format = GetFileExtension(base)
		if format == "" {
			format = "jpg"
		}
	}
	return filepath.Join(outputDir, fmt.Sprintf("%s%s.%s", name, suffix, format))
}

// ListImageFiles recursively lists all image files in a directory
func ListImageFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsImageFile(p) {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && !info.IsDir()
}

// DirExists checks if a directory exists
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	return err == nil && info.IsDir()
}

// SanitizeFilename replaces characters that are invalid in filenames
func SanitizeFilename(filename string) string {
	result := filename
	for _, char := range []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"} {
		result = strings.ReplaceAll(result, char, "_")
	}
	return strings.Trim(result, " .")
}

// FormatFileSize formats file size in human-readable format
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

var keyRE = regexp.MustCompile(`^[a-zA-Z0-9/._-]+$`)

// ValidateKey checks that key is a clean relative slash path to an image
func ValidateKey(key string) error {
	if !keyRE.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || clean[0] == '/' || strings.Contains(clean, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if !IsImageFile(key) {
		return fmt.Errorf("%w: %q has no image extension", ErrInvalidKey, key)
	}
	return nil
}

// KeyPath joins a validated key onto dir
func KeyPath(dir, key string) string {
	return filepath.Join(dir, filepath.FromSlash(key))
}
