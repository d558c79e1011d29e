package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/stackpilot/stackpilot/internal/config"
	"github.com/stackpilot/stackpilot/internal/provider"
)

// FilestoreAdapter is the file-based fallback data-store adapter. Records
// live in a single JSON file; every mutation rewrites the file atomically
// via a temp file rename.
type FilestoreAdapter struct {
	path string

	mu   sync.Mutex
	orgs map[string]*Organization
}

var _ provider.Adapter = (*FilestoreAdapter)(nil)

// NewFilestoreAdapter creates a filestore adapter backed by the configured
// path.
func NewFilestoreAdapter(cfg config.FilestoreConfig) *FilestoreAdapter {
	return &FilestoreAdapter{
		path: cfg.Path,
		orgs: make(map[string]*Organization),
	}
}

// Name returns the provider id.
func (a *FilestoreAdapter) Name() string { return ProviderFilestore }

// Connect loads the backing file, creating its directory if needed.
func (a *FilestoreAdapter) Connect(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0o750); err != nil {
		return fmt.Errorf("create filestore directory: %w", err)
	}

	data, err := os.ReadFile(a.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read filestore: %w", err)
	}

	var orgs []*Organization
	if err := json.Unmarshal(data, &orgs); err != nil {
		return fmt.Errorf("parse filestore: %w", err)
	}
	for _, org := range orgs {
		a.orgs[org.ID] = org
	}
	return nil
}

// Ping verifies the backing directory is writable.
func (a *FilestoreAdapter) Ping(_ context.Context) error {
	dir := filepath.Dir(a.path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat filestore directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("filestore path %s is not a directory", dir)
	}
	return nil
}

// Close is a no-op; state is persisted on every mutation.
func (a *FilestoreAdapter) Close() error { return nil }

// Execute runs a storage command against the file store.
func (a *FilestoreAdapter) Execute(_ context.Context, payload any) (any, error) {
	cmd, err := decodeCommand(payload)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	switch cmd.Op {
	case OpCreate, OpUpdate:
		copied := *cmd.Org
		a.orgs[copied.ID] = &copied
		if err := a.persistLocked(); err != nil {
			return nil, err
		}
		return &CommandResult{Org: cmd.Org, Found: true}, nil

	case OpGet:
		org, ok := a.orgs[cmd.OrgID]
		if !ok {
			return &CommandResult{Found: false}, nil
		}
		copied := *org
		return &CommandResult{Org: &copied, Found: true}, nil

	case OpList:
		limit := cmd.Limit
		if limit <= 0 {
			limit = 50
		}
		orgs := make([]*Organization, 0, len(a.orgs))
		for _, org := range a.orgs {
			copied := *org
			orgs = append(orgs, &copied)
		}
		sort.Slice(orgs, func(i, j int) bool {
			return orgs[i].CreatedAt.After(orgs[j].CreatedAt)
		})
		if len(orgs) > limit {
			orgs = orgs[:limit]
		}
		return &CommandResult{Orgs: orgs, Found: true}, nil

	case OpDelete:
		_, ok := a.orgs[cmd.OrgID]
		if ok {
			delete(a.orgs, cmd.OrgID)
			if err := a.persistLocked(); err != nil {
				return nil, err
			}
		}
		return &CommandResult{Found: ok}, nil

	default:
		return nil, fmt.Errorf("%w: unknown op %q", ErrInvalidCommand, cmd.Op)
	}
}

// persistLocked writes the current state to disk. Callers hold a.mu.
func (a *FilestoreAdapter) persistLocked() error {
	orgs := make([]*Organization, 0, len(a.orgs))
	for _, org := range a.orgs {
		orgs = append(orgs, org)
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].ID < orgs[j].ID })

	data, err := json.MarshalIndent(orgs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal filestore: %w", err)
	}

	tmp := a.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write filestore: %w", err)
	}
	if err := os.Rename(tmp, a.path); err != nil {
		return fmt.Errorf("replace filestore: %w", err)
	}
	return nil
}
