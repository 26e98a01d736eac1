package imapfetch

// Overview holds lightweight message metadata.
type Overview struct {
	Subject string // raw, may contain MIME encoded words
	Date    string // raw Date header field value
	Size    int64

	Recent   bool
	Flagged  bool
	Answered bool
	Deleted  bool
	Seen     bool
	Draft    bool
}

// Fetcher retrieves message data from a mailbox.
//
// Messages are identified by their UID in the currently selected mailbox.
type Fetcher interface {
	// FetchOverview returns a message's overview.
	FetchOverview(uid uint32) (*Overview, error)
	// FetchHeader returns a message's raw header block.
	FetchHeader(uid uint32) ([]byte, error)
	// FetchStructure returns a message's body structure.
	FetchStructure(uid uint32) (*BodyPart, error)
	// FetchBody returns the raw, still transfer-encoded content of a body
	// part. A nil path returns the whole message body without the header.
	FetchBody(uid uint32, path PartPath) ([]byte, error)
}

// Transport is the mail protocol client messages are loaded from.
//
// Implementations are not required to be safe for concurrent use: a
// Transport is shared by all the Message and Attachment values loaded from
// it, which must not be used from multiple goroutines at once.
type Transport interface {
	Fetcher

	// StoreFlag sets or clears a flag on a message.
	StoreFlag(uid uint32, flag Flag, enable bool) error
	// Delete marks a message for deletion.
	Delete(uid uint32) error
	// Move moves a message to another mailbox.
	Move(uid uint32, mailbox string) error
}
