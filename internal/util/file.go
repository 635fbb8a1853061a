package util

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultVideoExtensions are the candidate video extensions scanned next to a
// thumbnails directory. The platform export only ever contains mp4.
var DefaultVideoExtensions = []string{".mp4"}

// DefaultImageExtensions are the thumbnail image extensions.
var DefaultImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// ExtensionSet normalizes a list of extensions into a lookup set.
// Entries are lower-cased and given a leading dot when missing.
func ExtensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return set
}

// SortedExtensions returns the members of an extension set in sorted order.
func SortedExtensions(set map[string]bool) []string {
	exts := make([]string, 0, len(set))
	for ext := range set {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// HasExtension reports whether path carries one of the extensions in set.
func HasExtension(path string, set map[string]bool) bool {
	return set[strings.ToLower(filepath.Ext(path))]
}

// IsHidden reports whether a file name is a dotfile.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// GetFileStem returns the filename without extension.
func GetFileStem(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}

// EnsureDirectory creates a directory if it doesn't exist.
func EnsureDirectory(path string) error {
	return os.MkdirAll(path, 0755)
}

// ShortPath returns the last n components of path joined with the OS
// separator. Used for compact report lines such as
// "inbox/chat_123/videos/thumbnails/x.jpg".
func ShortPath(path string, n int) string {
	parts := strings.Split(filepath.Clean(path), string(filepath.Separator))
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	if n <= 0 || len(kept) <= n {
		return filepath.Join(kept...)
	}
	return filepath.Join(kept[len(kept)-n:]...)
}
