package ingest

import (
	"encoding/base64"
	"strings"

	"github.com/rbhatta/kosha/internal/models"
)

// decodeBody decodes a Gmail body payload. The API documents URL-safe
// base64 without padding, but real payloads show up in every variant.
func decodeBody(data string) (string, bool) {
	if data == "" {
		return "", false
	}
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.StdEncoding,
	} {
		if b, err := enc.DecodeString(data); err == nil {
			return string(b), true
		}
	}
	return "", false
}

// extractBody pulls the text content out of a message's MIME tree.
//
// Precedence: a body attached directly to the payload wins and is returned
// as-is. Otherwise the direct children are scanned for a text/plain part,
// then a text/html part (stripped to text), then the same scan is applied
// one level deeper. Anything further down is ignored.
func extractBody(msg *models.MailMessage) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}
	if msg.Payload.Body != nil {
		if text, ok := decodeBody(msg.Payload.Body.Data); ok {
			return text
		}
	}

	if text := scanParts(msg.Payload.Parts); text != "" {
		return text
	}
	for _, part := range msg.Payload.Parts {
		if text := scanParts(part.Parts); text != "" {
			return text
		}
	}
	return ""
}

// scanParts scans one level of MIME parts, plain text before HTML.
func scanParts(parts []*models.MailPart) string {
	for _, part := range parts {
		if part.MimeType == "text/plain" && part.Body != nil {
			if text, ok := decodeBody(part.Body.Data); ok && strings.TrimSpace(text) != "" {
				return text
			}
		}
	}
	for _, part := range parts {
		if part.MimeType == "text/html" && part.Body != nil {
			if html, ok := decodeBody(part.Body.Data); ok {
				if text := stripHTMLToText(html); strings.TrimSpace(text) != "" {
					return text
				}
			}
		}
	}
	return ""
}
