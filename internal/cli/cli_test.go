package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tingyu91/snsjf/internal/app"
	"github.com/tingyu91/snsjf/internal/cli"
	"github.com/tingyu91/snsjf/internal/config"
	"github.com/tingyu91/snsjf/internal/domain/role"
)

// shared keeps one memory backend across commands, like a real database.
func shared() (cli.Opener, app.Stores) {
	stores := app.MemoryStores()
	return func(ctx context.Context, cfg config.Config) (app.Stores, error) {
		return stores, nil
	}, stores
}

func run(t *testing.T, cfg config.Config, open cli.Opener, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := cli.NewRootCmd(cfg, open)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRolesLifecycle(t *testing.T) {
	open, stores := shared()
	cfg := config.Config{}

	out, err := run(t, cfg, open, "roles", "create", "editors", "--perm", "2", "--perm", "3")
	require.NoError(t, err)

	var created role.Role
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, []int64{2, 3}, created.Permissions)

	_, err = run(t, cfg, open, "roles", "connect", created.ID, "2")
	require.NoError(t, err)

	out, err = run(t, cfg, open, "roles", "disconnect", created.ID, "2")
	require.NoError(t, err)
	var updated role.Role
	require.NoError(t, json.Unmarshal([]byte(out), &updated))
	assert.Equal(t, []int64{3}, updated.Permissions)

	_, err = run(t, cfg, open, "roles", "add-user", created.ID, "u1")
	require.NoError(t, err)

	r, err := stores.Roles.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, r.Users)

	out, err = run(t, cfg, open, "roles", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "editors")

	out, err = run(t, cfg, open, "roles", "delete", created.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "deleted role editors"))
}

func TestRoles_BadArguments(t *testing.T) {
	open, _ := shared()

	_, err := run(t, config.Config{}, open, "roles", "connect", "some-role", "not-a-number")
	require.Error(t, err)

	_, err = run(t, config.Config{}, open, "roles", "delete", "missing")
	require.Error(t, err)
}

func TestSeedAdmin(t *testing.T) {
	open, stores := shared()
	cfg := config.Config{
		AppName:              "meancore",
		RolesAdminPermission: 1,
		Admin:                config.Admin{Username: "root", Password: "Root-Pass-1", RoleName: "administrators"},
	}

	out, err := run(t, cfg, open, "seed-admin")
	require.NoError(t, err)
	assert.Contains(t, out, "admin root ready")

	r, err := stores.Roles.FindByName(context.Background(), "administrators")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, r.Permissions)

	cfg.Admin.Password = ""
	_, err = run(t, cfg, open, "seed-admin")
	require.Error(t, err)
}

func TestMigrate_RequiresPostgres(t *testing.T) {
	open, _ := shared()

	_, err := run(t, config.Config{StoreDriver: "memory"}, open, "migrate")
	require.Error(t, err)
}
