package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/client/services"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isSignedIn() bool
	SignUp(ctx context.Context) error
	Verify(ctx context.Context) error
	Resend(ctx context.Context) error
	SignIn(ctx context.Context) error
	OAuth(ctx context.Context, provider string) error
	Forgot(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	SignOut(ctx context.Context) error
	Status(ctx context.Context) error
}

// runREPL reads commands line by line from reader and dispatches them to a.
// The loop exits on EOF or when the user types "exit" or "quit".
//
// Prompt & Commands
//
//	Signed out:
//	  - signup        : create an account (email verification follows)
//	  - verify        : enter the email code of a pending sign-up
//	  - resend        : send the email code again
//	  - signin        : sign in with email and password
//	  - oauth [name]  : sign in through a provider in the browser (default google)
//	  - forgot        : reset a forgotten password
//
//	Signed in:
//	  - whoami        : show the synced profile
//	  - signout       : sign out (asks for confirmation)
//
//	Always:
//	  - status, help, exit | quit
//
// Errors returned by handlers are rendered with services.UserMessage.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("gophauth %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isSignedIn() {
				printlnFn("Available commands: whoami, signout, status, exit")
			} else {
				printlnFn("Available commands: signup, verify, resend, signin, oauth [provider], forgot, status, exit")
			}

		case "signup":
			cmdErr = a.SignUp(ctx)

		case "verify":
			cmdErr = a.Verify(ctx)

		case "resend":
			cmdErr = a.Resend(ctx)

		case "signin", "login":
			cmdErr = a.SignIn(ctx)

		case "oauth":
			provider := ""
			if len(args) > 0 {
				provider = args[0]
			}
			cmdErr = a.OAuth(ctx, provider)

		case "forgot":
			cmdErr = a.Forgot(ctx)

		case "whoami":
			cmdErr = a.WhoAmI(ctx)

		case "signout", "logout":
			cmdErr = a.SignOut(ctx)

		case "status":
			cmdErr = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn(services.UserMessage(cmdErr))
		}
	}
}

// getStatus renders the prompt status, e.g. "(Ada Lovelace online)".
func (a *App) getStatus() string {
	parts := make([]string, 0, 2)
	if a.isSignedIn() {
		if id, ok := a.identity.Get(); ok {
			parts = append(parts, id.DisplayName())
		} else {
			parts = append(parts, "signed in")
		}
	}
	if m := a.Mode(); m != "" {
		parts = append(parts, string(m))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " ") + ")"
}
