// Package classifier decides content types for stored documents.
//
// Uploads are judged by the client-declared media type (or, failing that, the
// file extension) against a fixed allow-list. Downloads re-derive the type
// from the payload's leading bytes.
package classifier

import (
	"net/http"
	"path/filepath"
	"strings"
)

// Media types accepted for upload.
const (
	MIMEPDF         = "application/pdf"
	MIMEJPEG        = "image/jpeg"
	MIMEPNG         = "image/png"
	MIMEPlainText   = "text/plain"
	MIMEOctetStream = "application/octet-stream"

	// FallbackContentType is served when sniffing cannot identify a payload.
	FallbackContentType = "text/plain; charset=utf-8"

	sniffLen = 512
)

var allowed = map[string]struct{}{
	MIMEPDF:       {},
	MIMEJPEG:      {},
	MIMEPNG:       {},
	MIMEPlainText: {},
}

var extensions = map[string]string{
	".pdf":  MIMEPDF,
	".jpg":  MIMEJPEG,
	".jpeg": MIMEJPEG,
	".png":  MIMEPNG,
	".txt":  MIMEPlainText,
}

// Normalize strips parameters and lowercases a media type.
func Normalize(mediaType string) string {
	mediaType, _, _ = strings.Cut(mediaType, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// IsAllowed reports whether mediaType is one of the upload allow-list entries.
func IsAllowed(mediaType string) bool {
	_, ok := allowed[Normalize(mediaType)]
	return ok
}

// FromExtension looks the filename's extension up in the fixed table.
func FromExtension(filename string) (string, bool) {
	ct, ok := extensions[strings.ToLower(filepath.Ext(filename))]
	return ct, ok
}

// Declared returns the normalized media type a client declared for an upload.
// A missing or generic declaration is replaced by the extension table entry.
func Declared(header, filename string) string {
	ct := Normalize(header)
	if ct == "" || ct == MIMEOctetStream {
		if byExt, ok := FromExtension(filename); ok {
			return byExt
		}
	}
	return ct
}

// Sniff inspects the leading bytes of data.
// ok is false when no signature matched.
func Sniff(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	ct := http.DetectContentType(data)
	if Normalize(ct) == MIMEOctetStream {
		return "", false
	}
	return ct, true
}

// Verify picks the content type to persist for an upload whose declared
// type already passed IsAllowed. A recognized payload signature always
// wins; the declaration is kept only when sniffing finds nothing.
func Verify(declared string, data []byte) string {
	if sniffed, ok := Sniff(data); ok {
		return Normalize(sniffed)
	}
	return Normalize(declared)
}

// Resolve returns the response content type for a stored payload.
// The sniffed type is used whenever the payload is recognized. stored is the
// type recorded at insert time (empty for older rows) and only applies when
// sniffing fails.
func Resolve(stored string, data []byte) string {
	if sniffed, ok := Sniff(data); ok {
		return sniffed
	}
	if stored != "" && Normalize(stored) != MIMEPlainText {
		return stored
	}
	return FallbackContentType
}
