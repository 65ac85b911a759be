package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// cliCredentials reads the gateway password from a file or, on a terminal,
// from a prompt. Nothing is read until the session asks for it.
type cliCredentials struct {
	username     string
	passwordFile string
	gateway      string
	prompt       func(prompt string) ([]byte, error)
}

func newCredentials(username, passwordFile, gateway string) *cliCredentials {
	return &cliCredentials{
		username:     strings.TrimSpace(username),
		passwordFile: passwordFile,
		gateway:      gateway,
		prompt:       promptPassword,
	}
}

func (c *cliCredentials) Username() string { return c.username }

func (c *cliCredentials) Password(_ context.Context) (string, error) {
	if c.passwordFile != "" {
		data, err := os.ReadFile(c.passwordFile)
		if err != nil {
			return "", userError{msg: fmt.Sprintf("cannot read password file: %v", err)}
		}
		defer zeroBytes(data)
		pw := strings.TrimRight(string(data), "\r\n")
		if pw == "" {
			return "", userError{msg: "password file is empty"}
		}
		return pw, nil
	}

	if c.prompt == nil {
		return "", userError{msg: "no password source configured"}
	}
	pw, err := c.prompt(fmt.Sprintf("Password for %s: ", c.gateway))
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	defer zeroBytes(pw)
	if len(pw) == 0 {
		return "", userError{msg: "password cannot be empty"}
	}
	return string(pw), nil
}

func promptPassword(prompt string) ([]byte, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return nil, userError{msg: "password required; pass --password-file or run in a terminal"}
	}
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
