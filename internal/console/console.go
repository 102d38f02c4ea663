package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/signalsfoundry/dna-repair-sim/internal/logging"
	"github.com/signalsfoundry/dna-repair-sim/model"
)

// ErrUnknownCommand is returned by Exec for input it cannot parse.
var ErrUnknownCommand = errors.New("unknown command")

const prompt = "> "

// Console reads commands and writes rendered views.
type Console struct {
	driver Driver
	out    io.Writer
	log    logging.Logger
}

// New constructs a Console writing to out.
func New(driver Driver, out io.Writer, log logging.Logger) *Console {
	if log == nil {
		log = logging.Noop()
	}
	return &Console{driver: driver, out: out, log: log}
}

// Run prints the welcome screen and then executes one command per line from
// in until "quit", end of input or ctx is done. Command errors are reported
// to the user and do not stop the loop; only driver-independent failures
// such as a read error are returned.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprint(c.out, welcome)
	fmt.Fprint(c.out, howTo)
	if err := c.show(ctx); err != nil {
		c.report(ctx, err)
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		fmt.Fprint(c.out, prompt)
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.out)
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			quit, err := c.Exec(ctx, line)
			if err != nil {
				c.report(ctx, err)
			}
			if quit {
				return nil
			}
		}
	}
}

// Exec runs a single command line. It reports whether the user asked to quit.
func (c *Console) Exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit", "q":
		return true, nil
	case "help", "h", "?":
		fmt.Fprint(c.out, howTo)
		return false, nil
	case "show", "s":
		return false, c.show(ctx)
	case "mutate", "m":
		if len(args) != 1 {
			return false, errors.New("usage: mutate N")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return false, fmt.Errorf("mutate: position %q is not a number", args[0])
		}
		v, err := c.driver.IntroduceMutation(ctx, n-1)
		if err != nil {
			return false, err
		}
		Render(c.out, v)
		return false, nil
	case "reveal", "r":
		v, err := c.driver.RevealComplement(ctx)
		if err != nil {
			return false, err
		}
		Render(c.out, v)
		return false, nil
	case "repair", "fix":
		if len(args) != 1 {
			return false, errors.New("usage: repair B")
		}
		b, err := model.ParseBase(args[0])
		if err != nil {
			return false, err
		}
		_, v, err := c.driver.SubmitRepair(ctx, b)
		if err != nil {
			return false, err
		}
		Render(c.out, v)
		return false, nil
	case "reset":
		v, err := c.driver.Reset(ctx)
		if err != nil {
			return false, err
		}
		Render(c.out, v)
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q (try 'help')", ErrUnknownCommand, cmd)
	}
}

func (c *Console) show(ctx context.Context) error {
	v, err := c.driver.View(ctx)
	if err != nil {
		return err
	}
	Render(c.out, v)
	return nil
}

func (c *Console) report(ctx context.Context, err error) {
	fmt.Fprintf(c.out, "error: %v\n", err)
	c.log.Debug(ctx, "command failed", logging.Err(err))
}
