// Package control reads preview commands from a terminal.
package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/smazurov/camwall/internal/capture"
	"github.com/smazurov/camwall/internal/logging"
)

// ErrUnknownCommand is returned for lines ParseCommand does not understand.
var ErrUnknownCommand = errors.New("unknown command")

// Commander is the capture side the console drives.
type Commander interface {
	Send(cmd capture.Command)
	State() capture.State
	Devices() int
}

const help = `commands:
  all       show every device
  one N     show device N only
  back      return to all devices
  status    print the current mode
  quit      stop capturing and exit
`

// Console is a line-oriented command prompt.
type Console struct {
	target Commander
	in     io.Reader
	out    io.Writer
	logger *slog.Logger
}

// NewConsole creates a console reading in and answering on out.
func NewConsole(target Commander, in io.Reader, out io.Writer) *Console {
	return &Console{
		target: target,
		in:     in,
		out:    out,
		logger: logging.GetLogger("control"),
	}
}

// Run reads commands until EOF, quit or ctx cancellation. Cancellation is
// noticed after the next line; a blocked read is not interrupted.
func (c *Console) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)
	c.prompt()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			c.prompt()
			continue
		}

		switch strings.ToLower(line) {
		case "help", "?":
			fmt.Fprint(c.out, help)
			c.prompt()
			continue
		case "status":
			fmt.Fprintf(c.out, "%s (%d devices)\n", c.target.State(), c.target.Devices())
			c.prompt()
			continue
		}

		cmd, err := ParseCommand(line, c.target.Devices())
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
			c.prompt()
			continue
		}
		c.logger.Info("Console command", "command", cmd)
		c.target.Send(cmd)
		if _, ok := cmd.(capture.Shutdown); ok {
			return nil
		}
		c.prompt()
	}
	return scanner.Err()
}

func (c *Console) prompt() {
	fmt.Fprint(c.out, "> ")
}

// ParseCommand turns a console line into a capture command. Indices are
// checked against devices before anything is sent.
func ParseCommand(line string, devices int) (capture.Command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return nil, ErrUnknownCommand
	}

	switch fields[0] {
	case "all", "a":
		if len(fields) != 1 {
			break
		}
		return capture.PreviewAll{}, nil
	case "one", "o":
		if len(fields) != 2 {
			return nil, errors.New("usage: one N")
		}
		idx, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("invalid device index %q", fields[1])
		}
		if idx < 0 || idx >= devices {
			return nil, fmt.Errorf("%w: %d not in [0, %d)", capture.ErrBadIndex, idx, devices)
		}
		return capture.PreviewOne{Index: idx}, nil
	case "back", "b":
		if len(fields) != 1 {
			break
		}
		return capture.Back{}, nil
	case "quit", "exit", "q":
		return capture.Shutdown{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, line)
}
