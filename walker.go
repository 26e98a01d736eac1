package imapfetch

import (
	"fmt"
	"strings"
)

const (
	plainTextSeparator = "\n\n"
	htmlSeparator      = "<br><br>"
)

// bodyWalker accumulates the text bodies and attachments of a message while
// walking its body structure.
type bodyWalker struct {
	fetcher Fetcher
	uid     uint32

	plainText   strings.Builder
	html        strings.Builder
	attachments []*Attachment
}

func (w *bodyWalker) walk(root *BodyPart) error {
	return root.Walk(w.processPart)
}

func (w *bodyWalker) processPart(path PartPath, bp *BodyPart) error {
	params := bp.params()

	role := classifyPart(bp, params)
	switch role {
	case roleAttachment:
		w.attachments = append(w.attachments, newAttachment(w.fetcher, w.uid, bp, path, params))
	case rolePlainText, roleHTML:
		raw, err := w.fetcher.FetchBody(w.uid, path)
		if err != nil {
			return fmt.Errorf("imapfetch: failed to fetch body part %q: %w", path, err)
		}
		b := Decode(raw, bp.Encoding)
		if cs, ok := params["charset"]; ok && !isOutputCharset(cs) {
			b = Transcode(b, cs)
		}
		if role == rolePlainText {
			w.appendPlainText(string(b))
		} else {
			w.appendHTML(string(b))
		}
	}
	return nil
}

func (w *bodyWalker) appendPlainText(s string) {
	if w.plainText.Len() > 0 {
		w.plainText.WriteString(plainTextSeparator)
	}
	w.plainText.WriteString(strings.TrimSpace(s))
}

func (w *bodyWalker) appendHTML(s string) {
	if w.html.Len() > 0 {
		w.html.WriteString(htmlSeparator)
	}
	w.html.WriteString(s)
}
