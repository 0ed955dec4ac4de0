package pages

import (
	"context"
	"strings"

	"github.com/tweetapp/tweetapp/pkg/api"
	"github.com/tweetapp/tweetapp/pkg/reactive"
)

// minQueryLen is the shortest query worth sending to the backend.
const minQueryLen = 2

// Search is the user lookup surface.
type Search struct {
	gateway api.Gateway

	query        *reactive.Signal[string]
	results      *reactive.Signal[[]api.User]
	searching    *reactive.Signal[bool]
	errorMessage *reactive.Signal[string]
}

// NewSearch assembles the search surface.
func NewSearch(gateway api.Gateway) *Search {
	return &Search{
		gateway:      gateway,
		query:        reactive.NewSignal(""),
		results:      reactive.NewSignal([]api.User{}),
		searching:    reactive.NewSignal(false),
		errorMessage: reactive.NewSignal(""),
	}
}

// Query is the input cell.
func (s *Search) Query() *reactive.Signal[string] {
	return s.query
}

// Results is the result list cell.
func (s *Search) Results() *reactive.Signal[[]api.User] {
	return s.results
}

// Searching reports whether a lookup is in flight.
func (s *Search) Searching() *reactive.Signal[bool] {
	return s.searching
}

// ErrorMessage holds the last lookup failure, or "".
func (s *Search) ErrorMessage() *reactive.Signal[string] {
	return s.errorMessage
}

// Run performs a lookup for query. Queries shorter than two characters after
// trimming clear the results without touching the network.
func (s *Search) Run(ctx context.Context, query string) error {
	s.query.Set(query)

	trimmed := strings.TrimSpace(query)
	if len(trimmed) < minQueryLen {
		reactive.Batch(func() {
			s.results.Set([]api.User{})
			s.errorMessage.Set("")
		})
		return nil
	}

	s.searching.Set(true)
	defer s.searching.Set(false)

	env, err := s.gateway.SearchUsers(ctx, trimmed)
	if err != nil {
		s.errorMessage.Set("Search failed")
		return err
	}
	if !env.Ok() {
		s.errorMessage.Set(env.ErrorMessage("Search failed"))
		return nil
	}

	reactive.Batch(func() {
		s.errorMessage.Set("")
		s.results.Set(env.Value())
	})
	return nil
}
