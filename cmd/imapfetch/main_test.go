package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emersion/go-imapfetch"
	"github.com/emersion/go-imapfetch/memtransport"
)

func TestLoadConfig(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("IMAPFETCH_ADDRESS=mail.example.org:993\nIMAPFETCH_USERNAME=from-file\n"), 0666))
	t.Setenv("IMAPFETCH_USERNAME", "from-env")
	t.Setenv("IMAPFETCH_SECURITY", "starttls")
	t.Cleanup(func() {
		os.Unsetenv("IMAPFETCH_ADDRESS")
	})

	cfg, err := loadConfig(envFile)
	require.NoError(t, err)
	assert.Equal(t, "mail.example.org:993", cfg.Address)
	assert.Equal(t, "from-env", cfg.Username)
	assert.Equal(t, "starttls", cfg.Security)
	assert.Equal(t, "INBOX", cfg.Mailbox)
	assert.Equal(t, "LOGIN", cfg.Auth)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestPrintMessage(t *testing.T) {
	raw := "From: Mitsuha Miyamizu <mitsuha@example.org>\r\n" +
		"To: taki@example.org\r\n" +
		"Subject: =?utf-8?q?Caf=C3=A9?=\r\n" +
		"Date: Wed, 11 May 2016 14:31:59 +0000\r\n" +
		"Content-Type: multipart/mixed; boundary=b\r\n" +
		"\r\n" +
		"--b\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"Line 1\nLine 2\r\n" +
		"--b\r\n" +
		"Content-Type: image/png; name=comet.png\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"iVBORw0KGgo=\r\n" +
		"--b--\r\n"

	tr := memtransport.New()
	uid := tr.Add([]byte(raw), imapfetch.FlagFlagged)
	msg, err := imapfetch.NewMessage(tr, uid)
	require.NoError(t, err)

	var sb strings.Builder
	printMessage(&sb, msg, false)
	out := sb.String()
	assert.Contains(t, out, "UID: 1\n")
	assert.Contains(t, out, "Date: Wed, 11 May 2016 14:31:59 +0000\n")
	assert.Contains(t, out, "From: \"Mitsuha Miyamizu\" <mitsuha@example.org>\n")
	assert.Contains(t, out, "To: taki@example.org\n")
	assert.NotContains(t, out, "Cc:")
	assert.Contains(t, out, "Subject: Café\n")
	assert.Contains(t, out, "Flags: recent flagged\n")
	assert.Contains(t, out, "Attachment: comet.png (image/png, 12 bytes)\n")
	assert.True(t, strings.HasSuffix(out, "\nLine 1\nLine 2\n"), "output = %q", out)

	sb.Reset()
	printMessage(&sb, msg, true)
	assert.Contains(t, sb.String(), "Line 1<br />\nLine 2")

	dir := t.TempDir()
	saveAttachments(msg, dir)
	_, err = os.Stat(filepath.Join(dir, "comet.png"))
	assert.NoError(t, err)
}

func TestPrintMessages(t *testing.T) {
	tr := memtransport.New()
	var uids []uint32
	for _, subject := range []string{"First", "Second"} {
		raw := "From: mitsuha@example.org\r\n" +
			"Subject: " + subject + "\r\n" +
			"Date: Wed, 11 May 2016 14:31:59 +0000\r\n" +
			"\r\n" +
			"Body\r\n"
		uids = append(uids, tr.Add([]byte(raw)))
	}
	// The most recent UID can't be loaded
	uids = append(uids, 42)

	var sb strings.Builder
	msgs := printMessages(&sb, tr, uids, false)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Second", msgs[0].Subject())

	out := sb.String()
	assert.True(t, strings.HasPrefix(out, "UID: 2\n"), "output = %q", out)
	assert.Equal(t, 1, strings.Count(out, strings.Repeat("-", 72)))
}

func TestSearchCriteria(t *testing.T) {
	unseen, from, subject = true, "taki", ""
	defer func() {
		unseen, from, subject = false, "", ""
	}()

	criteria := searchCriteria()
	assert.Equal(t, []imap.Flag{imap.FlagSeen}, criteria.NotFlag)
	assert.Equal(t, []imap.SearchCriteriaHeaderField{{Key: "From", Value: "taki"}}, criteria.Header)
}
