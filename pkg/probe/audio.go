package probe

import (
	"mime"
	"path/filepath"
	"strings"
)

const defaultAudioMIMEType = "audio/wav"

// resolveAudioMIMEType maps the file extension to the audio_file part's content
// type. Unknown or non-audio extensions fall back to audio/wav.
func resolveAudioMIMEType(filePath string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filePath)))

	switch ext {
	case "", ".wav":
		return defaultAudioMIMEType
	case ".mp3":
		return "audio/mpeg"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".webm":
		return "audio/webm"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".aac":
		return "audio/aac"
	}

	mimeType := mime.TypeByExtension(ext)
	// Strip parameters such as "; charset=utf-8".
	mimeType = strings.TrimSpace(strings.Split(mimeType, ";")[0])
	if !strings.HasPrefix(mimeType, "audio/") {
		return defaultAudioMIMEType
	}
	return mimeType
}
