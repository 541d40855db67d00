package models

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single chat message in server-assigned creation order.
type Message struct {
	ID        string
	Role      Role
	Content   string
	CreatedAt time.Time

	// FileIDs references attachments included with this message.
	FileIDs []string
}

// Attachment describes a file stored server-side for a chat.
type Attachment struct {
	ID           string
	FileName     string
	MimeType     string
	Size         int64
	DownloadPath string
	TextPreview  string
	CreatedAt    time.Time
}

// Chat is a conversation. List responses carry metadata only; Messages and
// Files are populated by detail fetches and by locally applied results of
// send/upload operations.
type Chat struct {
	ID           string
	OwnerID      string
	Title        string
	SystemPrompt string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Messages []*Message
	Files    []*Attachment
}

// Clone returns a deep copy. The cache hands out clones so callers can never
// mutate cached state in place.
func (c *Chat) Clone() *Chat {
	if c == nil {
		return nil
	}
	out := *c
	out.Messages = CloneMessages(c.Messages)
	out.Files = CloneAttachments(c.Files)
	return &out
}

// CloneMessages deep-copies a message slice.
func CloneMessages(in []*Message) []*Message {
	if in == nil {
		return nil
	}
	out := make([]*Message, len(in))
	for i, m := range in {
		cp := *m
		cp.FileIDs = append([]string(nil), m.FileIDs...)
		out[i] = &cp
	}
	return out
}

// CloneAttachments deep-copies an attachment slice.
func CloneAttachments(in []*Attachment) []*Attachment {
	if in == nil {
		return nil
	}
	out := make([]*Attachment, len(in))
	for i, a := range in {
		cp := *a
		out[i] = &cp
	}
	return out
}

// PendingAttachment is a locally held file picked before its conversation
// exists. It is never sent to the server as a record; once a chat is created
// the bytes are uploaded and the pending entry is discarded.
type PendingAttachment struct {
	ID       string
	FileName string
	MimeType string
	Data     []byte
}
