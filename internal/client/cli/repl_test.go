package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	calls []string
	args  [][]string
	err   error
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	return f.err
}

func (f *fakeExec) Events(ctx context.Context, a []string) error    { return f.record("events", a) }
func (f *fakeExec) Use(ctx context.Context, a []string) error       { return f.record("use", a) }
func (f *fakeExec) Direction(ctx context.Context, a []string) error { return f.record("dir", a) }
func (f *fakeExec) Find(ctx context.Context, a []string) error      { return f.record("find", a) }
func (f *fakeExec) Pick(ctx context.Context, a []string) error      { return f.record("pick", a) }
func (f *fakeExec) Scan(ctx context.Context, a []string) error      { return f.record("scan", a) }
func (f *fakeExec) Mark(ctx context.Context, a []string) error      { return f.record("mark", a) }
func (f *fakeExec) Confirm(ctx context.Context, a []string) error   { return f.record("confirm", a) }
func (f *fakeExec) Cancel(ctx context.Context, a []string) error    { return f.record("cancel", a) }
func (f *fakeExec) Ack(ctx context.Context, a []string) error       { return f.record("ack", a) }
func (f *fakeExec) Status(ctx context.Context, a []string) error    { return f.record("status", a) }
func (f *fakeExec) Queue(ctx context.Context, a []string) error     { return f.record("queue", a) }
func (f *fakeExec) Sync(ctx context.Context, a []string) error      { return f.record("sync", a) }
func (f *fakeExec) Review(ctx context.Context, a []string) error    { return f.record("review", a) }
func (f *fakeExec) Retry(ctx context.Context, a []string) error     { return f.record("retry", a) }
func (f *fakeExec) Discard(ctx context.Context, a []string) error   { return f.record("discard", a) }

func run(t *testing.T, exec execIface, input string, interactive bool) string {
	t.Helper()
	var out bytes.Buffer
	sc := bufio.NewScanner(strings.NewReader(input))
	runREPL(context.Background(), exec, func() string { return "rc> " }, sc, &out, interactive)
	return out.String()
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	input := strings.Join([]string{
		"help",
		"events",
		"use 1",
		"dir out",
		"",
		"find ana cruz",
		"pick 2",
		"SCAN P1",
		"mark late",
		"confirm",
		"cancel",
		"ack",
		"status",
		"queue",
		"sync",
		"review 1 confirm",
		"retry 2",
		"discard 3",
		"foobar",
		"exit",
		"events",
	}, "\n")

	exec := &fakeExec{}
	out := run(t, exec, input, false)

	require.Equal(t, []string{
		"events", "use", "dir", "find", "pick", "scan", "mark", "confirm", "cancel",
		"ack", "status", "queue", "sync", "review", "retry", "discard",
	}, exec.calls)
	require.Equal(t, []string{"ana", "cruz"}, exec.args[3])
	require.Equal(t, []string{"1", "confirm"}, exec.args[13])

	require.Contains(t, out, "Commands:")
	require.Contains(t, out, "Unknown command: foobar")
	require.Contains(t, out, "Bye!")
	require.NotContains(t, out, "rc> ")
}

func TestRunREPL_PrintsErrorsAndContinues(t *testing.T) {
	exec := &fakeExec{err: errors.New("a submission is already in flight")}
	out := run(t, exec, "scan P1\nscan P2\n", false)

	require.Len(t, exec.calls, 2)
	require.Equal(t, 2, strings.Count(out, "error: a submission is already in flight"))
}

func TestRunREPL_PromptOnlyWhenInteractive(t *testing.T) {
	out := run(t, &fakeExec{}, "quit\n", true)
	require.True(t, strings.HasPrefix(out, "rc> "))
}
