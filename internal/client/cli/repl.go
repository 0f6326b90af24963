package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface defines the command surface the REPL dispatches to. The real App
// satisfies it; tests provide a lightweight stub.
type execIface interface {
	Events(ctx context.Context, args []string) error
	Use(ctx context.Context, args []string) error
	Direction(ctx context.Context, args []string) error
	Find(ctx context.Context, args []string) error
	Pick(ctx context.Context, args []string) error
	Scan(ctx context.Context, args []string) error
	Mark(ctx context.Context, args []string) error
	Confirm(ctx context.Context, args []string) error
	Cancel(ctx context.Context, args []string) error
	Ack(ctx context.Context, args []string) error
	Status(ctx context.Context, args []string) error
	Queue(ctx context.Context, args []string) error
	Sync(ctx context.Context, args []string) error
	Review(ctx context.Context, args []string) error
	Retry(ctx context.Context, args []string) error
	Discard(ctx context.Context, args []string) error
}

const helpText = `Commands:
  events                   list events open for capture
  use <n|id>               select an event
  dir <in|out>             choose time-in or time-out
  scan <code>              record a scanned badge as Present
  find <name>              search members
  pick <n>                 choose a member from the last search
  mark [status]            record the chosen member (Present, Late, Absent, Excused)
  confirm                  overwrite the existing value after a conflict
  cancel                   keep the existing value after a conflict
  ack                      dismiss the last result
  status                   show selections, connectivity and queue
  queue                    list queued captures
  sync                     replay queued captures now
  review [n confirm|cancel] list or decide captures held for review
  retry <n>                requeue a dead-lettered capture
  discard <n>              delete a queued capture
  exit | quit              leave the program`

// runREPL reads commands from scanner and dispatches them to a until EOF or
// "exit". The first token is the command, the rest are its arguments.
// Handler errors are printed and the loop carries on. The prompt from
// promptFn is written only when interactive is set.
func runREPL(ctx context.Context, a execIface, promptFn func() string, scanner *bufio.Scanner, w io.Writer, interactive bool) {
	for {
		if interactive {
			fmt.Fprint(w, promptFn())
		}
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		var err error
		switch cmd {
		case "help", "?":
			fmt.Fprintln(w, helpText)
		case "events", "e":
			err = a.Events(ctx, args)
		case "use":
			err = a.Use(ctx, args)
		case "dir":
			err = a.Direction(ctx, args)
		case "find", "f":
			err = a.Find(ctx, args)
		case "pick", "p":
			err = a.Pick(ctx, args)
		case "scan", "s":
			err = a.Scan(ctx, args)
		case "mark", "m":
			err = a.Mark(ctx, args)
		case "confirm":
			err = a.Confirm(ctx, args)
		case "cancel":
			err = a.Cancel(ctx, args)
		case "ack":
			err = a.Ack(ctx, args)
		case "status":
			err = a.Status(ctx, args)
		case "queue", "q":
			err = a.Queue(ctx, args)
		case "sync":
			err = a.Sync(ctx, args)
		case "review":
			err = a.Review(ctx, args)
		case "retry":
			err = a.Retry(ctx, args)
		case "discard":
			err = a.Discard(ctx, args)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if err != nil {
			fmt.Fprintln(w, "error:", err)
		}
	}
}
