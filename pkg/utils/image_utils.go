package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"mime"
	"path/filepath"
	"strings"
)

const fallbackExtension = "bin"

// knownExtensions maps image media types to the extension used in archive keys,
// so keys do not depend on the platform's mime table.
var knownExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/bmp":  "bmp",
	"image/tiff": "tiff",
}

// IsImageContentType reports whether the declared media type is an image.
func IsImageContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/")
}

// ContentHash returns the hex encoded SHA-256 of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ImageExtension picks the extension of the original upload, falling back to the
// media type and finally to "bin". The result is lower case without a dot.
func ImageExtension(filename, contentType string) string {
	if ext := strings.TrimPrefix(filepath.Ext(filename), "."); ext != "" {
		return strings.ToLower(ext)
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fallbackExtension
	}
	if ext, ok := knownExtensions[mediaType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}

	return fallbackExtension
}

// ImageRef builds the content-addressed archive key: identical bytes with the
// same extension always produce the same key.
func ImageRef(data []byte, filename, contentType string) string {
	return ContentHash(data) + "." + ImageExtension(filename, contentType)
}
