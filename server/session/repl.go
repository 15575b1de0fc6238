package session

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/xraengine/xra-server/logger"
	"github.com/xraengine/xra-server/server/dispatcher"
)

const prompt = "radb> "

// Repl is the interactive shell: it reads one command per line and
// hands it to the dispatcher, printing results and single-line
// diagnostics.
type Repl struct {
	dispatcher *dispatcher.QueryDispatcher
	in         io.Reader
	out        io.Writer
}

// NewRepl builds a shell over the dispatcher and the given streams.
func NewRepl(d *dispatcher.QueryDispatcher, in io.Reader, out io.Writer) *Repl {
	return &Repl{dispatcher: d, in: in, out: out}
}

// Run reads commands until QUIT, EXIT or end of input.
func (r *Repl) Run() error {
	scanner := bufio.NewScanner(r.in)
	for {
		fmt.Fprint(r.out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToUpper(line) {
		case "QUIT", "EXIT":
			return nil
		}
		if err := r.dispatcher.Execute(line, r.out); err != nil {
			logger.Debugf("query failed: %v", err)
			fmt.Fprintf(r.out, "ERROR: %v\n", err)
		}
	}
}
