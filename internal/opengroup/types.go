// Package opengroup implements the open-group REST client:
// challenge-based auth over the shared HTTP primitive, message/deletion
// polling with defensive parsing, moderator and channel state, and the
// profile/upload endpoints.
package opengroup

import "time"

// Quote is an optional quoted-message reference attached to an
// OpenGroupMessage. ReplyTo is the quoted message's server id, distinct
// from QuotedTimestamp (the original sender's author-stamped timestamp):
// it identifies the quoted message by its server id.
type Quote struct {
	QuotedTimestamp int64
	Author          string
	Text            string
	ReplyTo         int64
}

// AttachmentKind classifies an Attachment by its oembed annotation type.
type AttachmentKind string

const (
	AttachmentPhoto       AttachmentKind = "photo"
	AttachmentVideo       AttachmentKind = "video"
	AttachmentAudio       AttachmentKind = "audio"
	AttachmentGeneric     AttachmentKind = "generic"
	AttachmentLinkPreview AttachmentKind = "link_preview"
)

// Attachment is a file or link preview carried by an OpenGroupMessage's
// net.app.core.oembed annotations.
type Attachment struct {
	Kind             AttachmentKind
	Server           string
	ID               int64
	ContentType      string
	Size             int64
	Filename         string
	Flags            int
	Width            int
	Height           int
	Caption          string
	URL              string
	LinkPreviewURL   string
	LinkPreviewTitle string
}

// ProfilePicture is a message author's optional avatar reference.
type ProfilePicture struct {
	ProfileKey []byte
	URL        string
}

// Signature is the author's signature over an OpenGroupMessage body.
type Signature struct {
	Bytes   []byte
	Version int
}

// OpenGroupMessage is one message on a channel, as returned by the
// messages endpoint.
type OpenGroupMessage struct {
	ServerID         int64
	Author           string
	DisplayName      string
	Body             string
	Timestamp        int64 // author-stamped
	Quote            *Quote
	Attachments      []Attachment
	ProfilePicture   *ProfilePicture
	Signature        Signature
	ServerTimestamp  time.Time
}
