package imapfetch

import (
	"os"
	"path/filepath"
)

// Attachment is a named body part of a message.
//
// The content is fetched on first use and cached for the lifetime of the
// Attachment.
type Attachment struct {
	fetcher  Fetcher
	uid      uint32
	part     *BodyPart
	path     PartPath
	filename string

	data lazy[[]byte]
}

func newAttachment(fetcher Fetcher, uid uint32, part *BodyPart, path PartPath, params map[string]string) *Attachment {
	filename, ok := params["filename"]
	if !ok {
		filename = params["name"]
	}
	return &Attachment{
		fetcher:  fetcher,
		uid:      uid,
		part:     part,
		path:     path,
		filename: DecodeHeader(filename),
	}
}

// UID returns the UID of the message the attachment belongs to.
func (att *Attachment) UID() uint32 {
	return att.uid
}

// Filename returns the attachment's file name, taken from the
// Content-Disposition filename parameter or the Content-Type name parameter.
// The empty string is returned if the part has none.
func (att *Attachment) Filename() string {
	return att.filename
}

// MIMEType returns the attachment's media type, e.g. "image/png".
func (att *Attachment) MIMEType() string {
	return att.part.MediaType()
}

// Size returns the size of the encoded body part, as reported by the server.
func (att *Attachment) Size() int64 {
	return att.part.Size
}

// Encoding returns the transfer encoding of the body part.
func (att *Attachment) Encoding() Encoding {
	return att.part.Encoding
}

// PartPath returns the position of the attachment in the message's body
// structure.
func (att *Attachment) PartPath() PartPath {
	return att.path
}

// BodyPart returns the attachment's body structure node.
func (att *Attachment) BodyPart() *BodyPart {
	return att.part
}

// Data returns the decoded content of the attachment.
func (att *Attachment) Data() ([]byte, error) {
	return att.data.get(false, func() ([]byte, error) {
		raw, err := att.fetcher.FetchBody(att.uid, att.path)
		if err != nil {
			return nil, err
		}
		return Decode(raw, att.part.Encoding), nil
	})
}

// SaveAs writes the attachment's content to a file. It reports whether the
// file could be written: false is returned if the content can't be fetched,
// if the parent directory doesn't exist or if the file isn't writable.
func (att *Attachment) SaveAs(path string) bool {
	if fi, err := os.Stat(filepath.Dir(path)); err != nil || !fi.IsDir() {
		return false
	}
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return false
	}

	data, err := att.Data()
	if err != nil {
		return false
	}
	return os.WriteFile(path, data, 0666) == nil
}

// SaveToDirectory writes the attachment's content into dir, using its file
// name. See SaveAs.
func (att *Attachment) SaveToDirectory(dir string) bool {
	name := filepath.Base(filepath.Clean("/" + att.filename))
	if name == "/" || name == "." {
		return false
	}
	return att.SaveAs(filepath.Join(dir, name))
}
