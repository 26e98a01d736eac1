package imaptransport

import (
	"github.com/emersion/go-imap/v2"

	"github.com/emersion/go-imapfetch"
)

// convertBodyStructure converts an IMAP BODYSTRUCTURE into a body part tree.
//
// The body of an embedded message/rfc822 part becomes the part's children,
// so that part paths match IMAP section numbers.
func convertBodyStructure(bs imap.BodyStructure) *imapfetch.BodyPart {
	switch bs := bs.(type) {
	case *imap.BodyStructureSinglePart:
		bp := &imapfetch.BodyPart{
			Type:     imapfetch.ParseBodyType(bs.Type),
			Subtype:  bs.Subtype,
			Encoding: imapfetch.ParseEncoding(bs.Encoding),
			Size:     int64(bs.Size),
			Params:   bs.Params,
		}
		if bs.Extended != nil && bs.Extended.Disposition != nil {
			bp.DispositionParams = bs.Extended.Disposition.Params
		}
		if rfc822 := bs.MessageRFC822; rfc822 != nil && rfc822.BodyStructure != nil {
			child := convertBodyStructure(rfc822.BodyStructure)
			if child.Parts != nil {
				bp.Parts = child.Parts
			} else {
				bp.Parts = []*imapfetch.BodyPart{child}
			}
		}
		return bp
	case *imap.BodyStructureMultiPart:
		bp := &imapfetch.BodyPart{
			Type:     imapfetch.TypeMultipart,
			Subtype:  bs.Subtype,
			Encoding: imapfetch.Encoding7Bit,
			Parts:    make([]*imapfetch.BodyPart, 0, len(bs.Children)),
		}
		if ext := bs.Extended; ext != nil {
			bp.Params = ext.Params
			if ext.Disposition != nil {
				bp.DispositionParams = ext.Disposition.Params
			}
		}
		for _, child := range bs.Children {
			bp.Parts = append(bp.Parts, convertBodyStructure(child))
		}
		return bp
	default:
		return &imapfetch.BodyPart{Type: imapfetch.TypeOther}
	}
}
