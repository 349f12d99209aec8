package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studypet/studypet-hub/config"
)

const cliUser = "3c9d2e1f-7a6b-4c5d-8e9f-0a1b2c3d4e5f"

type cli struct {
	t  *testing.T
	db string
}

func newCLI(t *testing.T) *cli {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("REDIS_ENABLED", "false")
	return &cli{t: t, db: filepath.Join(t.TempDir(), "cli.db")}
}

func (c *cli) run(args ...string) ([]byte, error) {
	c.t.Helper()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--db", c.db}, args...))

	err := root.ExecuteContext(context.Background())
	return out.Bytes(), err
}

func (c *cli) runJSON(dest interface{}, args ...string) {
	c.t.Helper()

	out, err := c.run(args...)
	require.NoError(c.t, err, string(out))
	require.NoError(c.t, json.Unmarshal(out, dest), string(out))
}

func TestCLI_SessionFlow(t *testing.T) {
	c := newCLI(t)

	var migrated map[string]int
	c.runJSON(&migrated, "migrate")
	assert.Positive(t, migrated["applied"])

	var created map[string]interface{}
	c.runJSON(&created, "user", "create", "--user-id", cliUser, "--pet-name", "Mochi")
	assert.Equal(t, "Mochi", created["pet_name"])
	assert.Equal(t, "cat", created["pet_type"])

	var started map[string]interface{}
	c.runJSON(&started, "session", "start", cliUser, "--title", "Calculus", "--target", "25")
	sessionID := started["id"].(string)
	require.NotEmpty(t, sessionID)

	var finished map[string]interface{}
	c.runJSON(&finished, "session", "finish", cliUser, sessionID, "--focus", "4")
	reward := finished["reward"].(map[string]interface{})
	session := reward["session"].(map[string]interface{})
	assert.Equal(t, false, session["goal_reached"])
	assert.Equal(t, float64(0), session["xp"])
	assert.Equal(t, float64(1), session["streak"])

	_, err := c.run("session", "complete", cliUser, sessionID)
	assert.ErrorContains(t, err, "rewarded")

	var sessions []map[string]interface{}
	c.runJSON(&sessions, "session", "list", cliUser)
	require.Len(t, sessions, 1)
	assert.Equal(t, true, sessions[0]["completed"])

	var status map[string]interface{}
	c.runJSON(&status, "status", cliUser)
	assert.Equal(t, float64(1), status["level"])
	assert.Equal(t, map[string]interface{}{"days_passed": float64(0)}, status["decay"])

	var adjusted map[string]interface{}
	c.runJSON(&adjusted, "pet", "adjust", cliUser, "--energy", "30")
	assert.Equal(t, true, adjusted["changed"])

	var sweep map[string]interface{}
	c.runJSON(&sweep, "sweep")
	assert.Equal(t, float64(0), sweep["processed"])

	var deleted map[string]string
	c.runJSON(&deleted, "user", "delete", cliUser)
	assert.Equal(t, cliUser, deleted["deleted"])

	_, err = c.run("status", cliUser)
	assert.ErrorContains(t, err, "not found")
}

func TestCLI_ArgumentErrors(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("pet", "adjust", cliUser)
	assert.ErrorContains(t, err, "--mood or --energy")

	_, err = c.run("session", "finish", cliUser)
	assert.Error(t, err)

	_, err = c.run("--driver", "mongo", "status", cliUser)
	assert.ErrorContains(t, err, "DB_DRIVER")
}

func TestLoadConfig_DriverFlags(t *testing.T) {
	newCLI(t)
	path := filepath.Join(t.TempDir(), "flags.db")

	tests := []struct {
		args   []string
		driver string
	}{
		{args: []string{"--db", path}, driver: config.DriverSQLite},
		{args: []string{"--driver", "memory", "--db", path}, driver: config.DriverMemory},
		{args: []string{"--db", path, "--driver", "memory"}, driver: config.DriverMemory},
	}
	for _, tt := range tests {
		root := newRootCmd()
		require.NoError(t, root.ParseFlags(tt.args))

		cfg, err := loadConfig(root)
		require.NoError(t, err, tt.args)
		assert.Equal(t, tt.driver, cfg.Database.Driver, tt.args)
		assert.Equal(t, path, cfg.Database.SQLitePath, tt.args)
	}
}
