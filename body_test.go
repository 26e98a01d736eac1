package imapfetch

import (
	"testing"
)

func TestNewlinesToBreaks(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"a", "a"},
		{"a\nb", "a<br />\nb"},
		{"a\r\nb", "a<br />\r\nb"},
		{"a\rb", "a<br />\rb"},
		{"a\n\nb", "a<br />\n<br />\nb"},
	}
	for _, test := range tests {
		if out := newlinesToBreaks(test.in); out != test.out {
			t.Errorf("newlinesToBreaks(%q) = %q, want %q", test.in, out, test.out)
		}
	}
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"<p>Hi</p>", "Hi"},
		{"<p>Caf&eacute; <b>au</b> lait</p>", "Caf&eacute; au lait"},
		{"<p>Fish &amp; chips</p>\r\n<p>Tea</p>\r\n", "Fish &amp; chips\r\nTea\r\n"},
		{"<style>p { color: red }</style><p>x</p>", "x"},
		{"<script>alert(1)</script>ok", "ok"},
		{"no markup", "no markup"},
		{"", ""},
	}
	for _, test := range tests {
		if out := stripTags(test.in); out != test.out {
			t.Errorf("stripTags(%q) = %q, want %q", test.in, out, test.out)
		}
	}
}

func TestMessage_Body(t *testing.T) {
	tests := []struct {
		name      string
		plainText string
		html      string
		wantHTML  bool
		out       string
		ok        bool
	}{
		{"plain", "Hello", "<p>Hi</p>", false, "Hello", true},
		{"html", "Hello", "<p>Hi</p>", true, "<p>Hi</p>", true},
		{"plain from html", "", "<p>Hi</p>", false, "Hi", true},
		{"html from plain", "a\nb", "", true, "a<br />\nb", true},
		{"plain from nothing", "", "", false, "", false},
		{"html from nothing", "", "", true, "", false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			msg := &Message{plainText: test.plainText, html: test.html}
			out, ok := msg.Body(test.wantHTML)
			if out != test.out || ok != test.ok {
				t.Errorf("Body(%v) = %q, %v, want %q, %v", test.wantHTML, out, ok, test.out, test.ok)
			}
		})
	}
}

func TestMessage_SanitizedHTMLBody(t *testing.T) {
	msg := &Message{html: `<p onclick="steal()">Hi<script>alert(1)</script></p>`}
	out, ok := msg.SanitizedHTMLBody()
	if !ok || out != "<p>Hi</p>" {
		t.Errorf("SanitizedHTMLBody() = %q, %v, want %q", out, ok, "<p>Hi</p>")
	}

	if _, ok := (&Message{}).SanitizedHTMLBody(); ok {
		t.Errorf("SanitizedHTMLBody() on an empty message succeeded")
	}
}
