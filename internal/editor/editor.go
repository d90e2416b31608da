// Package editor opens files in external programs and waits for them to exit.
package editor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrNoCommand is returned when the configured command is blank.
var ErrNoCommand = errors.New("no command configured")

// Opener opens a file and returns once the user is done with it.
type Opener interface {
	Open(ctx context.Context, path string) error
}

// Command runs a program with the file path as its last argument.
type Command struct {
	name string
	args []string
}

// NewCommand splits a command line on whitespace. Double quotes group words and an empty
// pair of quotes is kept as an empty argument.
func NewCommand(line string) (*Command, error) {
	fields := splitFields(line)
	if len(fields) == 0 {
		return nil, ErrNoCommand
	}
	return &Command{name: fields[0], args: fields[1:]}, nil
}

func (c *Command) String() string {
	return strings.Join(append([]string{c.name}, c.args...), " ")
}

// Open starts the program and waits for it to exit.
func (c *Command) Open(ctx context.Context, path string) error {
	args := append(append([]string{}, c.args...), path)
	cmd := exec.CommandContext(ctx, c.name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	log.Debug().Str("command", c.name).Strs("args", args).Msg("Opening file")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s: %w", c.name, err)
	}
	return nil
}

func splitFields(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes, started := false, false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			started = true
		case !inQuotes && (r == ' ' || r == '\t'):
			if started {
				fields = append(fields, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if started {
		fields = append(fields, cur.String())
	}
	return fields
}
