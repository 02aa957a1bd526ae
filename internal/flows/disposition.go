package flows

import (
	"mime"
	"path"
	"strings"
)

// IsJSON reports whether a Content-Type header names a JSON media type.
func IsJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	return mt == MediaTypeJSON || strings.HasSuffix(mt, "+json")
}

// FilenameFromDisposition extracts the download name from a Content-Disposition header,
// preferring the RFC 5987 filename* form. It returns fallback when the header names no
// usable file.
func FilenameFromDisposition(header, fallback string) string {
	if header == "" {
		return SanitizeFilename(fallback)
	}
	// ParseMediaType decodes filename* into the filename parameter.
	if _, params, err := mime.ParseMediaType(header); err == nil {
		if name := SanitizeFilename(params["filename"]); name != "" {
			return name
		}
	}
	if name := SanitizeFilename(looseFilename(header)); name != "" {
		return name
	}
	return SanitizeFilename(fallback)
}

// looseFilename handles headers ParseMediaType rejects, such as unquoted names with spaces.
func looseFilename(header string) string {
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		k, v, ok := strings.Cut(part, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(k), "filename") {
			continue
		}
		return strings.Trim(strings.TrimSpace(v), `"'`)
	}
	return ""
}

// SanitizeFilename reduces name to a base file name without path separators.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	name = path.Base(name)
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
}
