package reply

import "mime"

// mimeByExtension wraps the standard library's MIME table; badu-http's
// own mime.ParseMediaType helper already does the same for parsing media
// types, so extension lookup follows the same pattern rather than
// shipping a parallel table.
func mimeByExtension(ext string) string {
	if ext == "" {
		return "application/octet-stream"
	}
	if ext[0] != '.' {
		ext = "." + ext
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
