// Package browse drives an interactive search: fetch a page, show the
// accumulated results, and either load the next page, import a selection or
// stop.
//
// The loop is a small state machine:
//
//	AwaitingQuery -> FetchingPage -> ShowingResults
//	ShowingResults -> FetchingNextPage -> ShowingResults
//	ShowingResults -> Selected | Cancelled
//	FetchingPage | FetchingNextPage -> Exhausted | Failed
//
// Rendering and input are delegated to a Prompter so the loop can be driven
// by a terminal UI or by tests.
package browse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rubiojr/codesnippets/pkg/client"
	"github.com/rubiojr/codesnippets/pkg/core"
	"github.com/rubiojr/codesnippets/pkg/log"
	"github.com/rubiojr/codesnippets/pkg/query"
)

var logger = log.ForService("browse")

type State int

const (
	StateAwaitingQuery State = iota
	StateFetchingPage
	StateShowingResults
	StateFetchingNextPage
	StateSelected
	StateCancelled
	StateExhausted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingQuery:
		return "awaiting-query"
	case StateFetchingPage:
		return "fetching-page"
	case StateShowingResults:
		return "showing-results"
	case StateFetchingNextPage:
		return "fetching-next-page"
	case StateSelected:
		return "selected"
	case StateCancelled:
		return "cancelled"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether the loop stops in s.
func (s State) Terminal() bool {
	return s >= StateSelected
}

// Searcher fetches one page. *client.Client implements it.
type Searcher interface {
	Search(ctx context.Context, kind core.Kind, q query.Query, cursor string, limit int) (*client.Page, error)
}

type Action int

const (
	ActionCancel Action = iota
	ActionSelect
	ActionLoadMore
)

// Choice is the user's answer to a results view.
type Choice struct {
	Action Action
	// ID of the selected entry when Action is ActionSelect.
	ID string
}

// View is what the Prompter shows after each page.
type View struct {
	Kind  core.Kind
	Query string
	// Entries accumulated over every page fetched so far.
	Entries []client.Entry
	// TotalCount as reported by the first page.
	TotalCount int
	// CanLoadMore is true when the last page had a next page.
	CanLoadMore bool
}

// Prompter renders results and collects user input. Returning ok=false or
// ActionCancel cancels the loop.
type Prompter interface {
	AskQuery(ctx context.Context, kind core.Kind) (raw string, ok bool, err error)
	Choose(ctx context.Context, v View) (Choice, error)
	// Notify shows a user-visible message, such as a failure or an empty
	// result.
	Notify(msg string)
}

// Outcome is the result of a finished loop.
type Outcome struct {
	State State
	// ID is set when State is StateSelected.
	ID         string
	Entries    []client.Entry
	TotalCount int
	// Err is set when State is StateFailed.
	Err error
}

// Loop runs interactive searches.
type Loop struct {
	searcher Searcher
	prompter Prompter
	limit    int

	// OnState, when set, is called on every transition.
	OnState func(State)
}

// New creates a loop. limit 0 uses the server default page size.
func New(s Searcher, p Prompter, limit int) *Loop {
	return &Loop{searcher: s, prompter: p, limit: limit}
}

// Run searches kind for raw, asking the Prompter for a query when raw is
// blank. It returns an error only when the Prompter fails; fetch failures
// end the loop in StateFailed after notifying the user.
func (l *Loop) Run(ctx context.Context, kind core.Kind, raw string) (Outcome, error) {
	out := Outcome{}

	if strings.TrimSpace(raw) == "" {
		l.transition(&out, StateAwaitingQuery)
		answer, ok, err := l.prompter.AskQuery(ctx, kind)
		if err != nil {
			return out, fmt.Errorf("asking for a query: %w", err)
		}
		if !ok || strings.TrimSpace(answer) == "" {
			l.transition(&out, StateCancelled)
			return out, nil
		}
		raw = answer
	}

	q := query.Parse(raw)
	cursor := ""
	l.transition(&out, StateFetchingPage)

	for {
		page, err := l.searcher.Search(ctx, kind, q, cursor, l.limit)
		if ctx.Err() != nil {
			// the response, if any, arrived after cancellation
			l.transition(&out, StateCancelled)
			return out, nil
		}
		if err != nil {
			out.Err = err
			l.prompter.Notify(failureMessage(kind, err))
			l.transition(&out, StateFailed)
			return out, nil
		}
		if len(page.Entries) == 0 {
			msg := fmt.Sprintf("No %s found for %q", kind, raw)
			if cursor != "" {
				msg = fmt.Sprintf("No more %s found for %q", kind, raw)
			}
			l.prompter.Notify(msg)
			l.transition(&out, StateExhausted)
			return out, nil
		}

		if cursor == "" {
			out.TotalCount = page.Pagination.TotalCount
		}
		out.Entries = append(out.Entries, page.Entries...)

		next := ""
		if page.Pagination.HasNextPage && page.Pagination.NextCursor != nil {
			next = *page.Pagination.NextCursor
		}

		l.transition(&out, StateShowingResults)
		choice, err := l.prompter.Choose(ctx, View{
			Kind:        kind,
			Query:       raw,
			Entries:     out.Entries,
			TotalCount:  out.TotalCount,
			CanLoadMore: next != "",
		})
		if err != nil {
			return out, fmt.Errorf("showing results: %w", err)
		}

		switch {
		case choice.Action == ActionLoadMore && next != "":
			cursor = next
			l.transition(&out, StateFetchingNextPage)
		case choice.Action == ActionSelect && choice.ID != "":
			out.ID = choice.ID
			l.transition(&out, StateSelected)
			return out, nil
		default:
			l.transition(&out, StateCancelled)
			return out, nil
		}
	}
}

func (l *Loop) transition(out *Outcome, s State) {
	logger.Debugf("%s -> %s", out.State, s)
	out.State = s
	if l.OnState != nil {
		l.OnState(s)
	}
}

func failureMessage(kind core.Kind, err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fmt.Sprintf("Failed to search %s: %v", kind, err)
}
