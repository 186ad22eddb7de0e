package recording

import (
	"path"
	"strings"
)

// DefaultAllowedFormats - форматы, которые записывают клиенты.
var DefaultAllowedFormats = []string{
	"audio/webm",
	"audio/ogg",
	"audio/m4a",
	"audio/x-m4a",
	"audio/mp4",
	"audio/aac",
	"audio/mpeg",
	"audio/wav",
	"audio/x-wav",
}

// BaseContentType отбрасывает параметры вида ";codecs=opus".
func BaseContentType(ct string) string {
	base, _, _ := strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// ExtForContentType подбирает расширение файла по MIME; для неизвестного
// типа берется расширение исходного имени.
func ExtForContentType(ct, filename string) string {
	switch BaseContentType(ct) {
	case "audio/webm":
		return ".webm"
	case "audio/ogg", "application/ogg":
		return ".ogg"
	case "audio/mp4", "audio/m4a", "audio/x-m4a", "video/mp4":
		return ".m4a"
	case "audio/aac":
		return ".aac"
	case "audio/mpeg":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	}

	if ext := strings.ToLower(path.Ext(filename)); ext != "" {
		return ext
	}
	return ".bin"
}

// TitleFromFilename - имя файла без расширения.
func TitleFromFilename(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}
