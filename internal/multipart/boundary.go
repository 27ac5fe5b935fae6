package multipart

import (
	"mime"
	"strings"
)

// BoundaryFromContentType extracts the boundary parameter from a
// multipart/form-data Content-Type header value, regardless of its
// position among the ';'-separated parameters. Reuses the standard
// library's media-type parser rather than reimplementing parameter
// scanning.
func BoundaryFromContentType(contentType string) (string, bool) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	boundary, ok := params["boundary"]
	if !ok || boundary == "" {
		return "", false
	}
	return boundary, true
}

// filenameFromHeaders scans raw, CRLF-joined part-header bytes for a
// Content-Disposition line and extracts its filename parameter, if any.
func filenameFromHeaders(raw []byte) string {
	lines := strings.Split(string(raw), "\r\n")
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Disposition") {
			continue
		}
		_, params, err := mime.ParseMediaType(strings.TrimSpace(value))
		if err != nil {
			return ""
		}
		return params["filename"]
	}
	return ""
}

// headerTerminator is the blank line ending a part's header block.
const headerTerminator = "\r\n\r\n"

func findHeaderEnd(acc []byte) int {
	idx := strings.Index(string(acc), headerTerminator)
	if idx < 0 {
		return -1
	}
	return idx + len(headerTerminator)
}
