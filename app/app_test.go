package app

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigTemplate = `Title = "accessctl-test"

[Webserver]
Port = 8080
URL = "http://localhost:8080"

[DB]
GormEngine = "sqlite"
Path = %q

[Log]
LogLevel = "error"
AppName = "accessctl"
ServiceName = "accessctl"

[Auth]
BypassRole = "ADMIN"
CriticalRoles = ["ADMIN"]

[Cache]
Enabled = false

[Audit]
Sinks = ["db"]
`

func writeConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	content := fmt.Sprintf(testConfigTemplate, filepath.Join(dir, "accessctl.db"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.toml"), []byte(content), 0o600))

	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		adminUser = ""
		assignFor = 0
		dumpJSON = false
	})

	err := rootCmd.Execute()

	return out.String(), err
}

func TestSeedAndCheck(t *testing.T) {
	dir := writeConfig(t)

	_, err := run(t, "--config", dir, "seed", "--admin-user", "boss")
	require.NoError(t, err)

	out, err := run(t, "--config", dir, "check", "boss", "permission:administrar")
	require.NoError(t, err)
	assert.Contains(t, out, "allow")

	out, err = run(t, "--config", dir, "check", "nobody", "permission:administrar")
	require.NoError(t, err)
	assert.Contains(t, out, "deny(insufficient_role)")

	out, err = run(t, "--config", dir, "check", "boss", "any_role:GHOST")
	require.NoError(t, err)
	assert.Contains(t, out, "deny(role_not_found)")
	assert.Contains(t, out, "missing: GHOST")

	_, err = run(t, "--config", dir, "check", "boss", "bogus:thing")
	assert.Error(t, err)
}

func TestRoleAssignRevoke(t *testing.T) {
	dir := writeConfig(t)

	_, err := run(t, "--config", dir, "seed", "--admin-user", "boss")
	require.NoError(t, err)

	out, err := run(t, "--config", dir, "role", "assign", "maria", "inscrito", "--for", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "assigned INSCRITO to maria")

	out, err = run(t, "--config", dir, "permissions", "maria")
	require.NoError(t, err)
	assert.Contains(t, out, "central_access")

	out, err = run(t, "--config", dir, "role", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "INSCRITO")
	assert.Contains(t, out, "VISITANTE")

	out, err = run(t, "--config", dir, "role", "revoke", "maria", "INSCRITO")
	require.NoError(t, err)
	assert.Contains(t, out, "revoked INSCRITO from maria")

	_, err = run(t, "--config", dir, "role", "revoke", "boss", "ADMIN")
	assert.Error(t, err)
}

func TestConfigDump(t *testing.T) {
	dir := writeConfig(t)

	out, err := run(t, "--config", dir, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "accessctl-test")

	out, err = run(t, "--config", dir, "config", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"Title": "accessctl-test"`)
}

func TestMigrate(t *testing.T) {
	dir := writeConfig(t)

	_, err := run(t, "--config", dir, "migrate")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "accessctl.db"))
	assert.NoError(t, err)
}

func TestCacheFlush(t *testing.T) {
	dir := writeConfig(t)

	out, err := run(t, "--config", dir, "cache", "flush")
	require.NoError(t, err)
	assert.Contains(t, out, "grant cache flushed")
}
