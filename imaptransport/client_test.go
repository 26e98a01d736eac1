package imaptransport_test

import (
	"net"
	"strings"
	"testing"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emersion/go-imapfetch"
	"github.com/emersion/go-imapfetch/imaptransport"
)

const (
	testUsername = "test-user"
	testPassword = "test-password"
)

const simpleMessage = "From: Mitsuha Miyamizu <mitsuha.miyamizu@example.org>\r\n" +
	"To: Taki Tachibana <taki.tachibana@example.org>\r\n" +
	"Subject: =?utf-8?q?Your_Name=2E?=\r\n" +
	"Date: Wed, 11 May 2016 14:31:59 +0000\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hi there :)\r\n"

const multipartMessage = "From: Taki Tachibana <taki.tachibana@example.org>\r\n" +
	"To: Mitsuha Miyamizu <mitsuha.miyamizu@example.org>\r\n" +
	"Subject: Photos\r\n" +
	"Date: Thu, 12 May 2016 09:00:00 +0200\r\n" +
	"Content-Type: multipart/mixed; boundary=message-boundary\r\n" +
	"\r\n" +
	"--message-boundary\r\n" +
	"Content-Type: multipart/alternative; boundary=text-boundary\r\n" +
	"\r\n" +
	"--text-boundary\r\n" +
	"Content-Type: text/plain; charset=iso-8859-1\r\n" +
	"Content-Transfer-Encoding: quoted-printable\r\n" +
	"\r\n" +
	"Caf=E9 tomorrow?\r\n" +
	"--text-boundary\r\n" +
	"Content-Type: text/html\r\n" +
	"\r\n" +
	"<p>Caf&eacute; tomorrow?</p>\r\n" +
	"--text-boundary--\r\n" +
	"--message-boundary\r\n" +
	"Content-Type: image/png\r\n" +
	"Content-Disposition: attachment; filename=comet.png\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"iVBORw0KGgo=\r\n" +
	"--message-boundary--\r\n"

func newTestServer(t *testing.T) string {
	t.Helper()

	memServer := imapmemserver.New()
	user := imapmemserver.NewUser(testUsername, testPassword)
	require.NoError(t, user.Create("INBOX", nil))
	require.NoError(t, user.Create("Archive", nil))
	memServer.AddUser(user)

	server := imapserver.New(&imapserver.Options{
		NewSession: func(conn *imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return memServer.NewSession(), nil, nil
		},
		Caps: imap.CapSet{
			imap.CapIMAP4rev1: {},
			imap.CapIMAP4rev2: {},
		},
		InsecureAuth: true,
	})

	ln, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	go server.Serve(ln)
	t.Cleanup(func() {
		server.Close()
	})

	// Populate the INBOX with a separate connection
	c, err := imapclient.DialInsecure(ln.Addr().String(), nil)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Login(testUsername, testPassword).Wait())
	for _, raw := range []string{simpleMessage, multipartMessage} {
		appendCmd := c.Append("INBOX", int64(len(raw)), nil)
		_, err := appendCmd.Write([]byte(raw))
		require.NoError(t, err)
		require.NoError(t, appendCmd.Close())
		_, err = appendCmd.Wait()
		require.NoError(t, err)
	}
	require.NoError(t, c.Logout().Wait())

	return ln.Addr().String()
}

func dialTestServer(t *testing.T, auth imaptransport.AuthMechanism) *imaptransport.Client {
	t.Helper()

	client, err := imaptransport.Dial(&imaptransport.Options{
		Address:  newTestServer(t),
		Username: testUsername,
		Password: testPassword,
		Security: imaptransport.SecurityNone,
		Auth:     auth,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		client.Close()
	})
	return client
}

func TestDial(t *testing.T) {
	for _, auth := range []imaptransport.AuthMechanism{imaptransport.AuthLogin, imaptransport.AuthPlain} {
		t.Run(string(auth), func(t *testing.T) {
			client := dialTestServer(t, auth)
			assert.Equal(t, "INBOX", client.Mailbox())
			assert.Equal(t, uint32(2), client.NumMessages())
			assert.NoError(t, client.Logout())
		})
	}
}

func TestDial_badPassword(t *testing.T) {
	_, err := imaptransport.Dial(&imaptransport.Options{
		Address:  newTestServer(t),
		Username: testUsername,
		Password: "wrong",
		Security: imaptransport.SecurityNone,
	})
	assert.Error(t, err)
}

func TestDial_missingAddress(t *testing.T) {
	_, err := imaptransport.Dial(nil)
	assert.Error(t, err)
}

func TestClient_Search(t *testing.T) {
	client := dialTestServer(t, imaptransport.AuthLogin)

	uids, err := client.Search(nil)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, uids)

	uids, err = client.Search(&imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{{Key: "Subject", Value: "Photos"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint32{2}, uids)
}

func TestClient_simpleMessage(t *testing.T) {
	client := dialTestServer(t, imaptransport.AuthLogin)

	msg, err := imapfetch.NewMessage(client, 1)
	require.NoError(t, err)

	assert.Equal(t, "Your Name.", msg.Subject())
	assert.Equal(t, "2016-05-11T14:31:59Z", msg.Date().UTC().Format("2006-01-02T15:04:05Z"))
	assert.Equal(t, int64(len(simpleMessage)), msg.Size())
	assert.Equal(t, "mitsuha.miyamizu@example.org", msg.From().Email())
	assert.Equal(t, "Mitsuha Miyamizu", msg.From().Name())
	assert.Equal(t, "Hi there :)", msg.PlainTextBody())
	assert.Empty(t, msg.HTMLBody())
	assert.Empty(t, msg.Attachments())
	assert.False(t, msg.HasFlag(imapfetch.FlagSeen), "fetching must not set \\Seen")
}

func TestClient_multipartMessage(t *testing.T) {
	client := dialTestServer(t, imaptransport.AuthLogin)

	msgs, err := client.Messages([]uint32{2})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	msg := msgs[0]

	bs, err := msg.Structure(false)
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", bs.MediaType())
	require.Len(t, bs.Parts, 2)
	assert.Equal(t, "multipart/alternative", bs.Parts[0].MediaType())

	plainText := msg.PlainTextBody()
	assert.True(t, strings.HasPrefix(plainText, "--text-boundary\r\n"), "plain text = %q", plainText)
	assert.Contains(t, plainText, "Caf=E9 tomorrow?")
	assert.True(t, strings.HasSuffix(plainText, "--text-boundary--\n\nCafé tomorrow?"), "plain text = %q", plainText)
	assert.Equal(t, "<p>Caf&eacute; tomorrow?</p>", msg.HTMLBody())

	atts := msg.Attachments()
	require.Len(t, atts, 1)
	assert.Equal(t, "comet.png", atts[0].Filename())
	assert.Equal(t, "image/png", atts[0].MIMEType())
	assert.Equal(t, "2", atts[0].PartPath().String())
	data, err := atts[0].Data()
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\n"), data)
}

func TestClient_flags(t *testing.T) {
	client := dialTestServer(t, imaptransport.AuthLogin)

	msg, err := imapfetch.NewMessage(client, 1)
	require.NoError(t, err)

	require.NoError(t, msg.SetFlag(imapfetch.FlagFlagged, true))
	require.NoError(t, msg.SetFlag(imapfetch.FlagSeen, true))
	_, err = msg.Overview(true)
	require.NoError(t, err)
	assert.True(t, msg.HasFlag(imapfetch.FlagFlagged))
	assert.True(t, msg.HasFlag(imapfetch.FlagSeen))

	require.NoError(t, msg.SetFlag(imapfetch.FlagFlagged, false))
	_, err = msg.Overview(true)
	require.NoError(t, err)
	assert.False(t, msg.HasFlag(imapfetch.FlagFlagged))

	err = client.StoreFlag(1, imapfetch.Flag("junk"), true)
	assert.ErrorIs(t, err, imapfetch.ErrInvalidFlagName)
}

func TestClient_deleteAndExpunge(t *testing.T) {
	client := dialTestServer(t, imaptransport.AuthLogin)

	msg, err := imapfetch.NewMessage(client, 1)
	require.NoError(t, err)
	require.NoError(t, msg.Delete())
	assert.True(t, msg.HasFlag(imapfetch.FlagDeleted))

	expunged, err := client.Expunge()
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, expunged)
	assert.Equal(t, uint32(1), client.NumMessages())

	uids, err := client.Search(nil)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2}, uids)
}

func TestClient_moveTo(t *testing.T) {
	client := dialTestServer(t, imaptransport.AuthLogin)

	msg, err := imapfetch.NewMessage(client, 2)
	require.NoError(t, err)
	require.NoError(t, msg.MoveTo("Archive"))

	uids, err := client.Search(nil)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, uids)

	require.NoError(t, client.Select("Archive"))
	assert.Equal(t, uint32(1), client.NumMessages())
	uids, err = client.Search(nil)
	require.NoError(t, err)
	require.Len(t, uids, 1)

	moved, err := imapfetch.NewMessage(client, uids[0])
	require.NoError(t, err)
	assert.Equal(t, "Photos", moved.Subject())
}

func TestClient_missingMessage(t *testing.T) {
	client := dialTestServer(t, imaptransport.AuthLogin)

	_, err := imapfetch.NewMessage(client, 42)
	assert.Error(t, err)
}

func TestClient_debugWriter(t *testing.T) {
	var sb strings.Builder
	client, err := imaptransport.Dial(&imaptransport.Options{
		Address:     newTestServer(t),
		Username:    testUsername,
		Password:    testPassword,
		Security:    imaptransport.SecurityNone,
		DebugWriter: &sb,
	})
	require.NoError(t, err)
	client.Close()

	assert.Contains(t, sb.String(), "SELECT")
}
