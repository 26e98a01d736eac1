package main

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emersion/go-imapfetch/imaptransport"
)

func TestNewServer(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for _, subject := range []string{"First", "Second"} {
		filename := filepath.Join(dir, subject+".eml")
		raw := "From: user@example.org\r\n" +
			"Subject: " + subject + "\r\n" +
			"Date: Wed, 11 May 2016 14:31:59 +0000\r\n" +
			"\r\n" +
			"Body of " + subject + "\r\n"
		require.NoError(t, os.WriteFile(filename, []byte(raw), 0666))
		files = append(files, filename)
	}

	server, err := newServer(&serverOptions{
		username:     "user",
		password:     "pass",
		files:        files,
		insecureAuth: true,
	})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	go server.Serve(ln)
	defer server.Close()

	client, err := imaptransport.Dial(&imaptransport.Options{
		Address:  ln.Addr().String(),
		Username: "user",
		Password: "pass",
		Security: imaptransport.SecurityNone,
	})
	require.NoError(t, err)
	defer client.Logout()

	uids, err := client.Search(nil)
	require.NoError(t, err)
	msgs, err := client.Messages(uids)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "First", msgs[0].Subject())
	assert.Equal(t, "Body of Second", msgs[1].PlainTextBody())
}

func TestNewServer_missingFile(t *testing.T) {
	_, err := newServer(&serverOptions{
		username: "user",
		password: "pass",
		files:    []string{filepath.Join(t.TempDir(), "missing.eml")},
	})
	assert.Error(t, err)
}
