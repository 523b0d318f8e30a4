package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isConnected() bool
	Connect(ctx context.Context, args []string) error
	Disconnect(ctx context.Context, args []string) error
	WhoAmI(ctx context.Context, args []string) error
	Hash(ctx context.Context, args []string) error
	Annotate(ctx context.Context, args []string) error
	Save(ctx context.Context, args []string) error
	Pin(ctx context.Context, args []string) error
	Register(ctx context.Context, args []string) error
	Check(ctx context.Context, args []string) error
	Verify(ctx context.Context, args []string) error
	VerifyHash(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Search(ctx context.Context, args []string) error
	Stats(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Cert(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
	Tx(ctx context.Context, args []string) error
}

const (
	helpDisconnected = "Available commands: connect, hash, annotate, save, pin, check, verify, verifyhash, list, search, export, tx, exit"
	helpConnected    = "Available commands: whoami, disconnect, hash, annotate, save, pin, register, check, cert, verify, verifyhash, list, search, stats, delete, export, tx, exit"
)

// runREPL reads commands from scanner until EOF, "exit" or "quit".
//
// The first token selects the command, the rest are passed through as
// arguments. Errors are reported by the handlers themselves, so the loop
// ignores them.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("dv (%s)> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isConnected() {
				printlnFn(helpConnected)
			} else {
				printlnFn(helpDisconnected)
			}

		case "connect":
			_ = a.Connect(ctx, args)
		case "disconnect":
			_ = a.Disconnect(ctx, args)
		case "whoami":
			_ = a.WhoAmI(ctx, args)

		case "hash":
			_ = a.Hash(ctx, args)
		case "annotate":
			_ = a.Annotate(ctx, args)
		case "save":
			_ = a.Save(ctx, args)
		case "pin":
			_ = a.Pin(ctx, args)
		case "register":
			_ = a.Register(ctx, args)
		case "check":
			_ = a.Check(ctx, args)
		case "cert":
			_ = a.Cert(ctx, args)

		case "verify":
			_ = a.Verify(ctx, args)
		case "verifyhash":
			_ = a.VerifyHash(ctx, args)

		case "l", "list":
			_ = a.List(ctx, args)
		case "search":
			_ = a.Search(ctx, args)
		case "stats":
			_ = a.Stats(ctx, args)
		case "delete":
			_ = a.Delete(ctx, args)
		case "export":
			_ = a.Export(ctx, args)
		case "tx":
			_ = a.Tx(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
