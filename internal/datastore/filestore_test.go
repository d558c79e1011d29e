package datastore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackpilot/stackpilot/internal/config"
	"github.com/stackpilot/stackpilot/internal/datastore"
)

func newFilestore(t *testing.T, path string) *datastore.FilestoreAdapter {
	t.Helper()
	adapter := datastore.NewFilestoreAdapter(config.FilestoreConfig{Path: path})
	require.NoError(t, adapter.Connect(context.Background()))
	return adapter
}

func testOrg(id string, createdAt time.Time) *datastore.Organization {
	return &datastore.Organization{
		ID:        id,
		Name:      "Acme " + id,
		Plan:      "pro",
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func executeCommand(t *testing.T, adapter *datastore.FilestoreAdapter, cmd datastore.Command) *datastore.CommandResult {
	t.Helper()
	resp, err := adapter.Execute(context.Background(), cmd)
	require.NoError(t, err)
	result, ok := resp.(*datastore.CommandResult)
	require.True(t, ok)
	return result
}

func TestFilestore_CreateAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orgs.json")
	adapter := newFilestore(t, path)

	org := testOrg("org_1", time.Now())
	created := executeCommand(t, adapter, datastore.Command{Op: datastore.OpCreate, Org: org})
	assert.True(t, created.Found)

	got := executeCommand(t, adapter, datastore.Command{Op: datastore.OpGet, OrgID: "org_1"})
	require.True(t, got.Found)
	assert.Equal(t, "Acme org_1", got.Org.Name)
}

func TestFilestore_GetMissingIsDataNotError(t *testing.T) {
	adapter := newFilestore(t, filepath.Join(t.TempDir(), "orgs.json"))

	got := executeCommand(t, adapter, datastore.Command{Op: datastore.OpGet, OrgID: "org_absent"})
	assert.False(t, got.Found)
	assert.Nil(t, got.Org)
}

func TestFilestore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orgs.json")

	first := newFilestore(t, path)
	executeCommand(t, first, datastore.Command{Op: datastore.OpCreate, Org: testOrg("org_persist", time.Now())})

	second := newFilestore(t, path)
	got := executeCommand(t, second, datastore.Command{Op: datastore.OpGet, OrgID: "org_persist"})
	require.True(t, got.Found)
	assert.Equal(t, "pro", got.Org.Plan)
}

func TestFilestore_UpsertIsIdempotent(t *testing.T) {
	adapter := newFilestore(t, filepath.Join(t.TempDir(), "orgs.json"))

	org := testOrg("org_retry", time.Now())
	executeCommand(t, adapter, datastore.Command{Op: datastore.OpCreate, Org: org})

	// A re-dispatched create with the same caller-generated id overwrites
	// instead of duplicating.
	org.Name = "Acme renamed"
	executeCommand(t, adapter, datastore.Command{Op: datastore.OpCreate, Org: org})

	listed := executeCommand(t, adapter, datastore.Command{Op: datastore.OpList})
	require.Len(t, listed.Orgs, 1)
	assert.Equal(t, "Acme renamed", listed.Orgs[0].Name)
}

func TestFilestore_ListNewestFirstWithLimit(t *testing.T) {
	adapter := newFilestore(t, filepath.Join(t.TempDir(), "orgs.json"))

	base := time.Now()
	for i, id := range []string{"org_a", "org_b", "org_c"} {
		org := testOrg(id, base.Add(time.Duration(i)*time.Minute))
		executeCommand(t, adapter, datastore.Command{Op: datastore.OpCreate, Org: org})
	}

	listed := executeCommand(t, adapter, datastore.Command{Op: datastore.OpList, Limit: 2})
	require.Len(t, listed.Orgs, 2)
	assert.Equal(t, "org_c", listed.Orgs[0].ID)
	assert.Equal(t, "org_b", listed.Orgs[1].ID)
}

func TestFilestore_Delete(t *testing.T) {
	adapter := newFilestore(t, filepath.Join(t.TempDir(), "orgs.json"))

	executeCommand(t, adapter, datastore.Command{Op: datastore.OpCreate, Org: testOrg("org_del", time.Now())})

	deleted := executeCommand(t, adapter, datastore.Command{Op: datastore.OpDelete, OrgID: "org_del"})
	assert.True(t, deleted.Found)

	again := executeCommand(t, adapter, datastore.Command{Op: datastore.OpDelete, OrgID: "org_del"})
	assert.False(t, again.Found)
}

func TestFilestore_InvalidCommand(t *testing.T) {
	adapter := newFilestore(t, filepath.Join(t.TempDir(), "orgs.json"))

	_, err := adapter.Execute(context.Background(), "not a command")
	require.Error(t, err)
	assert.True(t, errors.Is(err, datastore.ErrInvalidCommand))

	_, err = adapter.Execute(context.Background(), datastore.Command{Op: datastore.OpCreate})
	assert.True(t, errors.Is(err, datastore.ErrInvalidCommand))

	_, err = adapter.Execute(context.Background(), datastore.Command{Op: datastore.Op("truncate")})
	assert.True(t, errors.Is(err, datastore.ErrInvalidCommand))
}

func TestFilestore_PingChecksDirectory(t *testing.T) {
	adapter := newFilestore(t, filepath.Join(t.TempDir(), "orgs.json"))
	assert.NoError(t, adapter.Ping(context.Background()))

	missing := datastore.NewFilestoreAdapter(config.FilestoreConfig{
		Path: filepath.Join(t.TempDir(), "nope", "orgs.json"),
	})
	assert.Error(t, missing.Ping(context.Background()))
}
