package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rubiojr/codesnippets/pkg/browse"
	"github.com/rubiojr/codesnippets/pkg/core"
)

// terminalPrompter drives a browse.Loop from a line-oriented terminal.
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newTerminalPrompter(in io.Reader, out io.Writer) *terminalPrompter {
	return &terminalPrompter{in: bufio.NewReader(in), out: out}
}

func (p *terminalPrompter) readLine(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, nil
	}
	line, err := p.in.ReadString('\n')
	if errors.Is(err, io.EOF) {
		if line == "" {
			return "", false, nil
		}
		err = nil
	}
	if err != nil {
		return "", false, err
	}
	return strings.TrimSpace(line), true, nil
}

func (p *terminalPrompter) AskQuery(ctx context.Context, kind core.Kind) (string, bool, error) {
	fmt.Fprintf(p.out, "Search %s (filters: id: user: lang: tag:): ", kind)
	return p.readLine(ctx)
}

func (p *terminalPrompter) Choose(ctx context.Context, v browse.View) (browse.Choice, error) {
	fmt.Fprintln(p.out, renderView(v))

	for {
		fmt.Fprint(p.out, "> ")
		answer, ok, err := p.readLine(ctx)
		if err != nil {
			return browse.Choice{}, err
		}
		if !ok {
			return browse.Choice{Action: browse.ActionCancel}, nil
		}

		switch strings.ToLower(answer) {
		case "", "q", "quit":
			return browse.Choice{Action: browse.ActionCancel}, nil
		case "m", "more":
			if v.CanLoadMore {
				return browse.Choice{Action: browse.ActionLoadMore}, nil
			}
			p.Notify("No more results")
			continue
		}

		n, err := strconv.Atoi(answer)
		if err != nil || n < 1 || n > len(v.Entries) {
			p.Notify(fmt.Sprintf("Enter a number between 1 and %d", len(v.Entries)))
			continue
		}
		return browse.Choice{Action: browse.ActionSelect, ID: v.Entries[n-1].ID}, nil
	}
}

func (p *terminalPrompter) Notify(msg string) {
	fmt.Fprintln(p.out, noticeStyle.Render(msg))
}
