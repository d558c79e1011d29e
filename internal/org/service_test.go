package org_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stackpilot/stackpilot/internal/api/models"
	"github.com/stackpilot/stackpilot/internal/datastore"
	"github.com/stackpilot/stackpilot/internal/org"
	"github.com/stackpilot/stackpilot/internal/provider"
)

// fakeDispatcher records dispatched commands and answers from a scripted
// in-memory store, standing in for the fallback router.
type fakeDispatcher struct {
	providerID string
	err        error
	commands   []datastore.Command
	store      map[string]*datastore.Organization
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{
		providerID: "postgres",
		store:      make(map[string]*datastore.Organization),
	}
}

func (f *fakeDispatcher) Dispatch(_ context.Context, class provider.Class, payload any) (*provider.Result, error) {
	if class != provider.ClassDataStore {
		return nil, errors.New("unexpected capability class")
	}
	if f.err != nil {
		return nil, f.err
	}

	cmd := payload.(datastore.Command)
	f.commands = append(f.commands, cmd)

	var result *datastore.CommandResult
	switch cmd.Op {
	case datastore.OpCreate, datastore.OpUpdate:
		copied := *cmd.Org
		f.store[copied.ID] = &copied
		result = &datastore.CommandResult{Org: cmd.Org, Found: true}
	case datastore.OpGet:
		o, ok := f.store[cmd.OrgID]
		result = &datastore.CommandResult{Org: o, Found: ok}
	case datastore.OpList:
		orgs := make([]*datastore.Organization, 0, len(f.store))
		for _, o := range f.store {
			orgs = append(orgs, o)
		}
		result = &datastore.CommandResult{Orgs: orgs, Found: true}
	case datastore.OpDelete:
		_, ok := f.store[cmd.OrgID]
		delete(f.store, cmd.OrgID)
		result = &datastore.CommandResult{Found: ok}
	}

	return &provider.Result{
		ProviderID: f.providerID,
		Attempted:  []string{f.providerID},
		Response:   result,
	}, nil
}

func TestService_Create(t *testing.T) {
	dispatcher := newFakeDispatcher()
	service := org.NewService(dispatcher)
	ctx := context.Background()

	result, err := service.Create(ctx, &models.OrganizationCreateRequest{Name: "Acme"})
	if err != nil {
		t.Fatalf("failed to create organization: %v", err)
	}

	if result.ID == "" {
		t.Error("expected organization ID to be set")
	}
	if !strings.HasPrefix(result.ID, "org_") {
		t.Errorf("expected organization ID to start with 'org_', got %q", result.ID)
	}
	if result.Plan != "free" {
		t.Errorf("expected default plan 'free', got %q", result.Plan)
	}
	if result.ServedBy != "postgres" {
		t.Errorf("expected servedBy 'postgres', got %q", result.ServedBy)
	}

	// The id travels with the command, so a re-dispatched create would
	// upsert the same record.
	if len(dispatcher.commands) != 1 {
		t.Fatalf("expected 1 dispatched command, got %d", len(dispatcher.commands))
	}
	if dispatcher.commands[0].Org.ID != result.ID {
		t.Error("expected the caller-generated id to be dispatched")
	}
}

func TestService_Create_ValidationErrors(t *testing.T) {
	service := org.NewService(newFakeDispatcher())
	ctx := context.Background()

	longNotes := strings.Repeat("n", org.MaxNotesLength+1)

	tests := []struct {
		name      string
		input     *models.OrganizationCreateRequest
		wantField string
	}{
		{
			name:      "empty name",
			input:     &models.OrganizationCreateRequest{Name: ""},
			wantField: "name",
		},
		{
			name:      "name too long",
			input:     &models.OrganizationCreateRequest{Name: strings.Repeat("a", org.MaxNameLength+1)},
			wantField: "name",
		},
		{
			name:      "unknown plan",
			input:     &models.OrganizationCreateRequest{Name: "Acme", Plan: "platinum"},
			wantField: "plan",
		},
		{
			name:      "notes too long",
			input:     &models.OrganizationCreateRequest{Name: "Acme", Notes: &longNotes},
			wantField: "notes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Create(ctx, tt.input)

			var validationErr *org.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}

			found := false
			for _, fe := range validationErr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected field error for %q, got %+v", tt.wantField, validationErr.Errors)
			}
		})
	}
}

func TestService_GetNotFound(t *testing.T) {
	service := org.NewService(newFakeDispatcher())

	_, err := service.Get(context.Background(), "org_missing")
	if !errors.Is(err, org.ErrOrgNotFound) {
		t.Fatalf("expected ErrOrgNotFound, got %v", err)
	}
}

func TestService_Update(t *testing.T) {
	dispatcher := newFakeDispatcher()
	service := org.NewService(dispatcher)
	ctx := context.Background()

	created, err := service.Create(ctx, &models.OrganizationCreateRequest{Name: "Acme", Plan: "pro"})
	if err != nil {
		t.Fatalf("failed to create organization: %v", err)
	}

	newName := "Acme International"
	updated, err := service.Update(ctx, created.ID, &models.OrganizationUpdateRequest{Name: &newName})
	if err != nil {
		t.Fatalf("failed to update organization: %v", err)
	}

	if updated.Name != newName {
		t.Errorf("expected name %q, got %q", newName, updated.Name)
	}
	if updated.Plan != "pro" {
		t.Errorf("expected plan unchanged, got %q", updated.Plan)
	}
	if !time.Time(updated.UpdatedAt).After(time.Time(updated.CreatedAt)) {
		t.Error("expected updatedAt to advance")
	}
}

func TestService_UpdateNotFound(t *testing.T) {
	service := org.NewService(newFakeDispatcher())

	name := "Acme"
	_, err := service.Update(context.Background(), "org_missing", &models.OrganizationUpdateRequest{Name: &name})
	if !errors.Is(err, org.ErrOrgNotFound) {
		t.Fatalf("expected ErrOrgNotFound, got %v", err)
	}
}

func TestService_Delete(t *testing.T) {
	dispatcher := newFakeDispatcher()
	service := org.NewService(dispatcher)
	ctx := context.Background()

	created, err := service.Create(ctx, &models.OrganizationCreateRequest{Name: "Acme"})
	if err != nil {
		t.Fatalf("failed to create organization: %v", err)
	}

	if err := service.Delete(ctx, created.ID); err != nil {
		t.Fatalf("failed to delete organization: %v", err)
	}
	if err := service.Delete(ctx, created.ID); !errors.Is(err, org.ErrOrgNotFound) {
		t.Fatalf("expected ErrOrgNotFound on second delete, got %v", err)
	}
}

func TestService_PropagatesDispatchErrors(t *testing.T) {
	dispatcher := newFakeDispatcher()
	dispatcher.err = &provider.ExhaustedError{
		Class: provider.ClassDataStore,
		Attempts: []provider.Attempt{
			{ProviderID: "postgres", Err: errors.New("down")},
		},
	}
	service := org.NewService(dispatcher)

	_, err := service.List(context.Background(), 10)
	if !errors.Is(err, provider.ErrAllProvidersExhausted) {
		t.Fatalf("expected exhaustion error to pass through, got %v", err)
	}
}
