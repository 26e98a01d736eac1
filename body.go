package imapfetch

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// Body returns the message body in the requested format.
//
// If the message has no body in that format, the other one is converted:
// HTML tags are stripped to get plain text, and line breaks are converted to
// <br /> tags to get HTML. false is returned if the message has neither a
// plain-text nor an HTML body.
func (msg *Message) Body(wantHTML bool) (string, bool) {
	if wantHTML {
		if msg.html != "" {
			return msg.html, true
		}
		if msg.plainText != "" {
			return newlinesToBreaks(msg.plainText), true
		}
		return "", false
	}

	if msg.plainText != "" {
		return msg.plainText, true
	}
	if msg.html != "" {
		return stripTags(msg.html), true
	}
	return "", false
}

// SanitizedHTMLBody returns the HTML body with scripts, styles, event
// handlers and other unsafe markup removed. The plain-text body is converted
// to HTML if the message has no HTML body.
func (msg *Message) SanitizedHTMLBody() (string, bool) {
	body, ok := msg.Body(true)
	if !ok {
		return "", false
	}
	return bluemonday.UGCPolicy().Sanitize(body), true
}

var lineBreakReplacer = strings.NewReplacer("\r\n", "<br />\r\n", "\n", "<br />\n", "\r", "<br />\r")

func newlinesToBreaks(s string) string {
	return lineBreakReplacer.Replace(s)
}

// stripTags removes all markup from an HTML document, keeping the text
// content as it appears in the source: entities and line endings are left
// untouched. The content of script and style elements is dropped.
func stripTags(s string) string {
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Raw())
			}
		case html.StartTagToken:
			if isRawTextElement(z) {
				skip++
			}
		case html.EndTagToken:
			if isRawTextElement(z) && skip > 0 {
				skip--
			}
		}
	}
}

func isRawTextElement(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}
