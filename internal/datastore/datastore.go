// Package datastore provides the data-store capability adapters: a
// relational primary, a Redis secondary, and a file-based fallback, all
// behind the provider.Adapter interface.
package datastore

import (
	"errors"
	"fmt"
	"time"
)

// Provider ids for the data-store capability class.
const (
	ProviderPostgres  = "postgres"
	ProviderRedis     = "redis"
	ProviderFilestore = "filestore"
)

// ErrInvalidCommand is returned when an adapter receives a payload it
// cannot interpret.
var ErrInvalidCommand = errors.New("invalid datastore command")

// Op is a storage operation.
type Op string

// Storage operations understood by every data-store adapter.
const (
	OpCreate Op = "create"
	OpGet    Op = "get"
	OpList   Op = "list"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Organization is the stored record type.
type Organization struct {
	ID        string
	Name      string
	Plan      string
	Notes     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Command is the uniform payload dispatched to data-store adapters.
//
// Record ids are generated by the caller before dispatch, so a create that
// is re-attempted against another candidate (or retried end-to-end) upserts
// the same id instead of applying a duplicate write.
type Command struct {
	Op    Op
	OrgID string
	Org   *Organization
	Limit int
}

// CommandResult is the response payload from a data-store adapter.
//
// Domain outcomes such as "record not found" are data (Found=false), not
// errors: an adapter error always means the backend itself failed and the
// router should advance to the next candidate.
type CommandResult struct {
	Org   *Organization
	Orgs  []*Organization
	Found bool
}

// decodeCommand validates the dispatch payload for an adapter.
func decodeCommand(payload any) (Command, error) {
	cmd, ok := payload.(Command)
	if !ok {
		return Command{}, fmt.Errorf("%w: unexpected payload type %T", ErrInvalidCommand, payload)
	}
	switch cmd.Op {
	case OpCreate, OpUpdate:
		if cmd.Org == nil || cmd.Org.ID == "" {
			return Command{}, fmt.Errorf("%w: %s requires an organization with id", ErrInvalidCommand, cmd.Op)
		}
	case OpGet, OpDelete:
		if cmd.OrgID == "" {
			return Command{}, fmt.Errorf("%w: %s requires an organization id", ErrInvalidCommand, cmd.Op)
		}
	case OpList:
	default:
		return Command{}, fmt.Errorf("%w: unknown op %q", ErrInvalidCommand, cmd.Op)
	}
	return cmd, nil
}
