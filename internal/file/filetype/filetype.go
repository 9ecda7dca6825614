// Package filetype maps file names to semantic storage categories.
package filetype

import "strings"

// Category is the semantic type of a stored file.
type Category string

const (
	Document Category = "document"
	Image    Category = "image"
	Video    Category = "video"
	Audio    Category = "audio"
	Other    Category = "other"
)

// Categories lists every known category, in display order.
var Categories = []Category{Document, Image, Video, Audio, Other}

var documentExtensions = []string{
	"pdf", "doc", "docx", "txt", "xls", "xlsx", "csv", "rtf", "ods",
	"ppt", "odp", "md", "html", "htm", "epub", "gz", "tex",
	"pages", "numbers", "key",
}

var imageExtensions = []string{
	"jpg", "jpeg", "png", "gif", "bmp", "svg", "webp", "heic",
}

var videoExtensions = []string{
	"mp4", "avi", "mov", "mkv", "webm", "wmv", "flv",
}

var audioExtensions = []string{
	"mp3", "wav", "ogg", "flac", "aac", "m4a",
}

// Detect classifies a file by its name and returns the category together
// with the lowercased extension. Unknown and missing extensions map to
// Other; Detect never fails.
func Detect(filename string) (Category, string) {
	ext := Extension(filename)
	if ext == "" {
		return Other, ""
	}

	switch {
	case contains(documentExtensions, ext):
		return Document, ext
	case contains(imageExtensions, ext):
		return Image, ext
	case contains(videoExtensions, ext):
		return Video, ext
	case contains(audioExtensions, ext):
		return Audio, ext
	default:
		return Other, ext
	}
}

// Extension returns the lowercased suffix after the final dot, without the
// dot. A name without a dot, or ending in a dot, yields "".
func Extension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

// Valid reports whether s names a known category.
func Valid(s string) bool {
	for _, c := range Categories {
		if string(c) == s {
			return true
		}
	}
	return false
}

func contains(list []string, ext string) bool {
	for _, e := range list {
		if e == ext {
			return true
		}
	}
	return false
}
