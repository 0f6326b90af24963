package cli

import (
	"bufio"
	"io"
	"os"

	"golang.org/x/term"
)

// isInteractive is a test seam for term.IsTerminal on stdin. The prompt is
// only printed when a person is typing.
var isInteractive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func newLineReader(r io.Reader) *bufio.Scanner {
	return bufio.NewScanner(r)
}
