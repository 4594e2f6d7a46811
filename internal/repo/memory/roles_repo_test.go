package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tingyu91/snsjf/internal/apperr"
	"github.com/tingyu91/snsjf/internal/domain/role"
	"github.com/tingyu91/snsjf/internal/repo/memory"
)

func TestRolesRepo_GetAllNewestFirst(t *testing.T) {
	repo := memory.NewRolesRepo()
	ctx := context.Background()

	first, err := repo.Create(ctx, role.CreateRoleRequest{Name: "readers"})
	require.NoError(t, err)
	second, err := repo.Create(ctx, role.CreateRoleRequest{Name: "writers"})
	require.NoError(t, err)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)
}

func TestRolesRepo_ConnectTwiceDisconnectOnce(t *testing.T) {
	repo := memory.NewRolesRepo()
	ctx := context.Background()

	r, err := repo.Create(ctx, role.CreateRoleRequest{Name: "editors"})
	require.NoError(t, err)

	_, err = repo.ConnectPermission(ctx, r.ID, 7)
	require.NoError(t, err)
	got, err := repo.ConnectPermission(ctx, r.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 7}, got.Permissions)

	got, err = repo.DisconnectPermission(ctx, r.ID, 7)
	require.NoError(t, err)
	assert.Empty(t, got.Permissions)

	got, err = repo.DisconnectPermission(ctx, r.ID, 99)
	require.NoError(t, err)
	assert.Empty(t, got.Permissions)
}

func TestRolesRepo_Users(t *testing.T) {
	repo := memory.NewRolesRepo()
	ctx := context.Background()

	r, err := repo.Create(ctx, role.CreateRoleRequest{Name: "editors"})
	require.NoError(t, err)

	_, err = repo.AddUser(ctx, "u1", r.ID)
	require.NoError(t, err)
	_, err = repo.AddUser(ctx, "u2", r.ID)
	require.NoError(t, err)

	mine, err := repo.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)

	got, err := repo.RemoveUser(ctx, "u1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, got.Users)
}

func TestRolesRepo_UpdateKeepsID(t *testing.T) {
	repo := memory.NewRolesRepo()
	ctx := context.Background()

	r, err := repo.Create(ctx, role.CreateRoleRequest{Name: "editors", Permissions: []int64{1}})
	require.NoError(t, err)

	name := "authors"
	got, err := repo.Update(ctx, r.ID, role.UpdateRoleRequest{Name: &name})
	require.NoError(t, err)

	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, "authors", got.Name)
	assert.Equal(t, []int64{1}, got.Permissions)
}

func TestRolesRepo_UpdateRejectsTakenName(t *testing.T) {
	repo := memory.NewRolesRepo()
	ctx := context.Background()

	_, err := repo.Create(ctx, role.CreateRoleRequest{Name: "editor"})
	require.NoError(t, err)
	viewer, err := repo.Create(ctx, role.CreateRoleRequest{Name: "viewer"})
	require.NoError(t, err)

	name := "editor"
	_, err = repo.Update(ctx, viewer.ID, role.UpdateRoleRequest{Name: &name})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	got, err := repo.Get(ctx, viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, "viewer", got.Name)

	// keeping its own name is not a clash
	same := "viewer"
	_, err = repo.Update(ctx, viewer.ID, role.UpdateRoleRequest{Name: &same})
	require.NoError(t, err)
}

func TestRolesRepo_UnknownRole(t *testing.T) {
	repo := memory.NewRolesRepo()
	ctx := context.Background()

	_, err := repo.ConnectPermission(ctx, "nope", 1)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.ErrorIs(t, err, role.ErrNotFound)

	_, err = repo.Delete(ctx, "nope")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
