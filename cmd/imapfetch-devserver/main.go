// Command imapfetch-devserver serves .eml files over IMAP from memory, to try
// imapfetch without a real mail account.
//
// Each file given as an argument is appended to the INBOX of the single
// user.
package main

import (
	"bytes"
	"crypto/tls"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
)

var (
	listen       string
	tlsCert      string
	tlsKey       string
	username     string
	password     string
	debug        bool
	insecureAuth bool
)

type serverOptions struct {
	username, password string
	files              []string
	tlsConfig          *tls.Config
	insecureAuth       bool
	debugWriter        io.Writer
}

func newServer(options *serverOptions) (*imapserver.Server, error) {
	memServer := imapmemserver.New()

	user := imapmemserver.NewUser(options.username, options.password)
	if err := user.Create("INBOX", nil); err != nil {
		return nil, err
	}
	for _, filename := range options.files {
		b, err := os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		if _, err := user.Append("INBOX", bytes.NewReader(b), &imap.AppendOptions{}); err != nil {
			return nil, fmt.Errorf("failed to append %q: %w", filename, err)
		}
	}
	memServer.AddUser(user)

	return imapserver.New(&imapserver.Options{
		NewSession: func(conn *imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return memServer.NewSession(), nil, nil
		},
		Caps: imap.CapSet{
			imap.CapIMAP4rev1: {},
			imap.CapIMAP4rev2: {},
		},
		TLSConfig:    options.tlsConfig,
		InsecureAuth: options.insecureAuth,
		DebugWriter:  options.debugWriter,
	}), nil
}

func main() {
	flag.StringVar(&listen, "listen", "localhost:1143", "listening address")
	flag.StringVar(&tlsCert, "tls-cert", "", "TLS certificate")
	flag.StringVar(&tlsKey, "tls-key", "", "TLS key")
	flag.StringVar(&username, "username", "user", "Username")
	flag.StringVar(&password, "password", "user", "Password")
	flag.BoolVar(&debug, "debug", false, "Print all commands and responses")
	flag.BoolVar(&insecureAuth, "insecure-auth", false, "Allow authentication without TLS")
	flag.Parse()

	var tlsConfig *tls.Config
	if tlsCert != "" || tlsKey != "" {
		cert, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
		if err != nil {
			log.Fatalf("Failed to load TLS key pair: %v", err)
		}
		tlsConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
		}
	}

	var debugWriter io.Writer
	if debug {
		debugWriter = os.Stdout
	}

	server, err := newServer(&serverOptions{
		username:     username,
		password:     password,
		files:        flag.Args(),
		tlsConfig:    tlsConfig,
		insecureAuth: insecureAuth,
		debugWriter:  debugWriter,
	})
	if err != nil {
		log.Fatalf("Failed to load messages: %v", err)
	}

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	log.Printf("IMAP server listening on %v with %v messages", ln.Addr(), flag.NArg())

	if err := server.Serve(ln); err != nil {
		log.Fatalf("Serve() = %v", err)
	}
}
