package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Hussein-Mazeh/fritzer/internal/config"
	"github.com/Hussein-Mazeh/fritzer/internal/session"
)

const cliVersion = "0.1.0"

type userError struct {
	msg string
}

func (e userError) Error() string { return e.msg }

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		handleError(err)
	}
}

func handleError(err error) {
	if err == nil {
		return
	}
	os.Exit(reportError(os.Stderr, err))
}

// reportError prints err and returns the exit code: 1 for mistakes the user
// can fix, 2 for everything else.
func reportError(w io.Writer, err error) int {
	var uerr userError
	switch {
	case errors.As(err, &uerr):
		fmt.Fprintln(w, uerr.Error())
		return 1
	case errors.Is(err, session.ErrUsernameRequired):
		fmt.Fprintln(w, "no default user on the gateway; pass --username")
		return 1
	case errors.Is(err, session.ErrPasswordRequired):
		fmt.Fprintln(w, "password required; pass --password-file or run in a terminal")
		return 1
	case errors.Is(err, session.ErrInvalidCredentials):
		fmt.Fprintln(w, "login failed: invalid username or password")
		return 1
	case errors.Is(err, config.ErrInvalid):
		fmt.Fprintln(w, err.Error())
		return 1
	case errors.Is(err, session.ErrConnectivity):
		fmt.Fprintf(w, "cannot reach gateway: %v\n", err)
		return 2
	}

	fmt.Fprintf(w, "unexpected error: %v\n", err)
	return 2
}
