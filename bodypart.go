package imapfetch

import (
	"fmt"
	"mime"
	"strconv"
	"strings"
)

// BodyPart describes a node of a message's MIME body structure.
//
// BodyPart values are produced by a Transport and are never modified by this
// package.
type BodyPart struct {
	Type     BodyType
	Subtype  string
	Encoding Encoding
	Size     int64

	// Content-Type parameters
	Params map[string]string
	// Content-Disposition parameters
	DispositionParams map[string]string

	// Parts is non-nil for multipart bodies. For message/rfc822 bodies it holds
	// the parts of the embedded message.
	Parts []*BodyPart
}

// MediaType returns the MIME type of this part, e.g. "text/plain".
func (bp *BodyPart) MediaType() string {
	return bp.Type.String() + "/" + strings.ToLower(bp.Subtype)
}

// WalkFunc is called for each body part visited by BodyPart.Walk.
//
// A non-nil error stops the walk.
type WalkFunc func(path PartPath, part *BodyPart) error

// Walk walks the body part tree in DFS pre-order.
//
// If bp has children, f is called for each descendant of bp but not for bp
// itself, starting with path "1". Otherwise, f is called once for bp with a
// nil path.
func (bp *BodyPart) Walk(f WalkFunc) error {
	if bp.Parts == nil {
		return f(nil, bp)
	}
	return bp.walkChildren(nil, f)
}

func (bp *BodyPart) walkChildren(path PartPath, f WalkFunc) error {
	for i, child := range bp.Parts {
		childPath := path.Child(i + 1)
		if err := f(childPath, child); err != nil {
			return err
		}
		if err := child.walkChildren(childPath, f); err != nil {
			return err
		}
	}
	return nil
}

// params merges the Content-Type parameters with the Content-Disposition
// parameters. Keys are lower-cased; disposition parameters override
// Content-Type parameters with the same key.
func (bp *BodyPart) params() map[string]string {
	params := make(map[string]string, len(bp.Params)+len(bp.DispositionParams))
	for _, m := range []map[string]string{bp.Params, bp.DispositionParams} {
		for k, v := range m {
			params[strings.ToLower(k)] = v
		}
	}
	decodeExtendedParam(params, "name")
	decodeExtendedParam(params, "filename")
	return params
}

// decodeExtendedParam fills in a parameter from its RFC 2231 extended form
// ("filename*") when the plain form is missing.
func decodeExtendedParam(params map[string]string, key string) {
	ext, ok := params[key+"*"]
	if !ok {
		return
	}
	delete(params, key+"*")
	if _, ok := params[key]; ok {
		return
	}
	_, decoded, err := mime.ParseMediaType("x/x; " + key + "*=" + ext)
	if err != nil || decoded[key] == "" {
		params[key] = ext
		return
	}
	params[key] = decoded[key]
}

// PartPath is the position of a body part in a message's body structure, as
// used in IMAP section specifiers. A nil PartPath denotes the body of a
// non-multipart message.
type PartPath []int

// Child returns the path of the n-th child (1-based) of the part at path.
func (path PartPath) Child(n int) PartPath {
	child := make(PartPath, len(path), len(path)+1)
	copy(child, path)
	return append(child, n)
}

// String formats the path in dotted form, e.g. "2.1".
func (path PartPath) String() string {
	l := make([]string, len(path))
	for i, num := range path {
		l[i] = strconv.Itoa(num)
	}
	return strings.Join(l, ".")
}

// ParsePartPath parses a dotted part path. The empty string yields a nil
// path.
func ParsePartPath(s string) (PartPath, error) {
	if s == "" {
		return nil, nil
	}
	var path PartPath
	for _, field := range strings.Split(s, ".") {
		num, err := strconv.Atoi(field)
		if err != nil || num < 1 {
			return nil, fmt.Errorf("imapfetch: invalid part path %q", s)
		}
		path = append(path, num)
	}
	return path, nil
}

type partRole int

const (
	roleNone partRole = iota
	roleAttachment
	rolePlainText
	roleHTML
)

// classifyPart determines how a body part is handled. The attachment check
// comes first: a named text part is an attachment, never body text.
//
// Multipart parts fall in the plain-text bucket, whether or not they have
// children. Only the root of a multipart message is skipped, by Walk.
func classifyPart(bp *BodyPart, params map[string]string) partRole {
	_, hasName := params["name"]
	_, hasFilename := params["filename"]
	switch {
	case hasName || hasFilename:
		return roleAttachment
	case bp.Type == TypeMultipart, bp.Type == TypeText && strings.EqualFold(bp.Subtype, "plain"):
		return rolePlainText
	case bp.Type == TypeText:
		return roleHTML
	default:
		return roleNone
	}
}
