package cli

import (
	"context"
	"os"
	"testing"

	"github.com/dl-alexandre/gdmirror/internal/config"
	"github.com/dl-alexandre/gdmirror/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCommands(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.Equal(t, utils.ExitSuccess, h.run(ctx, "config", "set", "pageSize", "200"), h.stderr.String())
	assert.Contains(t, h.stderr.String(), "Configuration updated: pageSize = 200")

	saved, err := config.LoadFrom(h.config)
	require.NoError(t, err)
	assert.Equal(t, 200, saved.PageSize)

	require.Equal(t, utils.ExitSuccess, h.run(ctx, "config", "show", "--output", "json"))
	env, data := decodeEnvelope(t, h.stdout.Bytes())
	assert.Equal(t, "config.show", env.Command)
	assert.Equal(t, float64(200), data["pageSize"])

	require.Equal(t, utils.ExitSuccess, h.run(ctx, "config", "reset"))
	saved, err = config.LoadFrom(h.config)
	require.NoError(t, err)
	assert.Equal(t, utils.DefaultPageSize, saved.PageSize)
}

func TestConfigSet_Invalid(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.Equal(t, utils.ExitInvalidArgument, h.run(ctx, "config", "set", "bogus", "1"))
	assert.Equal(t, utils.ExitInvalidArgument, h.run(ctx, "config", "set", "pageSize", "5000"))
	assert.Equal(t, utils.ExitInvalidArgument, h.run(ctx, "config", "set", "pageSize"))

	_, err := os.Stat(h.config)
	assert.True(t, os.IsNotExist(err), "rejected values are never saved")
}

func TestConfig_BrokenFileCanBeReset(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.config, []byte(`{"pageSize": -4}`), 0600))
	ctx := context.Background()

	assert.Equal(t, utils.ExitInvalidArgument, h.run(ctx, "/A", "/dst"))
	assert.Equal(t, utils.ExitInvalidArgument, h.run(ctx, "config", "show"))
	require.Equal(t, utils.ExitSuccess, h.run(ctx, "config", "reset"))
	require.Equal(t, utils.ExitSuccess, h.run(ctx, "/A", "/dst"), h.stderr.String())
}

func TestConfig_DefaultsApplyToFlags(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.Equal(t, utils.ExitSuccess, h.run(ctx, "config", "set", "defaultOutputFormat", "json"))

	require.Equal(t, utils.ExitSuccess, h.run(ctx, "/A", "/dst"))
	env, _ := decodeEnvelope(t, h.stdout.Bytes())
	assert.Equal(t, "mirror", env.Command)

	require.Equal(t, utils.ExitSuccess, h.run(ctx, "--output", "table", "/A", "/dst"))
	assert.Contains(t, h.stdout.String(), "Unchanged")
}
