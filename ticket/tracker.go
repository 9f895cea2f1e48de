package ticket

import (
	"context"
	"errors"
)

// ErrInvalidTicket indicates the tracker rejected a ticket identifier.
var ErrInvalidTicket = errors.New("invalid ticket")

// Tracker checks ticket identifiers against an issue tracker.
type Tracker interface {
	ValidateTicket(ctx context.Context, ticket string) (bool, error)
}

// AcceptAll is a Tracker that accepts every ticket.
type AcceptAll struct{}

func (AcceptAll) ValidateTicket(context.Context, string) (bool, error) {
	return true, nil
}
