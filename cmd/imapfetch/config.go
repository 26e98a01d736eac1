package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "IMAPFETCH"

// config holds the defaults of the command-line flags.
type config struct {
	Address  string `envconfig:"ADDRESS"`
	Username string `envconfig:"USERNAME"`
	Password string `envconfig:"PASSWORD"`
	Mailbox  string `envconfig:"MAILBOX" default:"INBOX"`
	Security string `envconfig:"SECURITY" default:"tls"`
	Auth     string `envconfig:"AUTH" default:"LOGIN"`
}

// loadConfig reads the IMAPFETCH_* environment variables. Variables are
// first loaded from the .env files, if any. Variables already set in the
// environment take precedence.
func loadConfig(filenames ...string) (*config, error) {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var cfg config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
