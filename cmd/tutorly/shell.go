package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var stdin io.Reader = os.Stdin

// runShell reads commands line by line until EOF, "exit" or "quit".
func runShell(ctx context.Context, e *env, in io.Reader) error {
	sc := bufio.NewScanner(in)
	fmt.Fprint(e.out, "tutorly> ")
	for sc.Scan() {
		args, err := splitArgs(sc.Text())
		switch {
		case err != nil:
			fmt.Fprintln(e.out, err)
		case len(args) == 0:
		case args[0] == "exit" || args[0] == "quit":
			return nil
		case args[0] == "shell":
			fmt.Fprintln(e.out, "already in the shell")
		default:
			if err := run(ctx, e, args); err != nil {
				switch {
				case errors.Is(err, errUsage):
					usage(e.out)
				case errors.Is(err, errLoginRequired), errors.Is(err, errSilent):
				default:
					fmt.Fprintf(e.out, "error: %v\n", err)
				}
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(e.out, "tutorly> ")
	}
	return sc.Err()
}

// splitArgs splits on whitespace and keeps double-quoted runs together.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		have    bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			have = true
		case !inQuote && (r == ' ' || r == '\t'):
			if have {
				args = append(args, cur.String())
				cur.Reset()
				have = false
			}
		default:
			cur.WriteRune(r)
			have = true
		}
	}
	if inQuote {
		return nil, errors.New("unterminated quote")
	}
	if have {
		args = append(args, cur.String())
	}
	return args, nil
}
