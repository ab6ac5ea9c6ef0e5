package models

// MailHeader is one RFC 822 header on a message part.
type MailHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MailBody carries the base64url-encoded content of a message part.
type MailBody struct {
	Size int    `json:"size"`
	Data string `json:"data,omitempty"`
}

// MailPart is one node of a message's MIME tree. Leaf parts carry a body;
// multipart containers carry child parts.
type MailPart struct {
	MimeType string       `json:"mimeType"`
	Filename string       `json:"filename,omitempty"`
	Headers  []MailHeader `json:"headers,omitempty"`
	Body     *MailBody    `json:"body,omitempty"`
	Parts    []*MailPart  `json:"parts,omitempty"`
}

// Header returns the value of the named header on this part, or "".
func (p *MailPart) Header(name string) string {
	for _, h := range p.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// MailMessage is a full message as returned by the mailbox API.
type MailMessage struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"threadId,omitempty"`
	Snippet  string    `json:"snippet,omitempty"`
	Payload  *MailPart `json:"payload"`
}

// MailRef is a message identifier from a list query.
type MailRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId,omitempty"`
}
