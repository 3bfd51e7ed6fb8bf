package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestLoadConfig_EnvOverlayAndSecrets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  host: localhost
  port: 5432
  password: ${DB_SECRET}
server:
  port: ":8080"
`)
	writeFile(t, dir, "staging.yaml", `
db:
  host: db.staging
`)
	writeFile(t, dir, "secrets.env", `
# comment
DB_SECRET="s3cr3t"
`)

	tree, err := LoadConfig("staging", dir)
	require.NoError(t, err)

	var out struct {
		DB     DBConfig     `yaml:"db"`
		Server ServerConfig `yaml:"server"`
	}
	require.NoError(t, Decode(tree, &out))

	assert.Equal(t, "db.staging", out.DB.Host)
	assert.Equal(t, 5432, out.DB.Port)
	assert.Equal(t, "s3cr3t", out.DB.Password)
	assert.Equal(t, ":8080", out.Server.Port)
}

func TestLoadConfig_MissingBase(t *testing.T) {
	_, err := LoadConfig("local", t.TempDir())
	require.Error(t, err)
}

func TestMergeMaps_DoesNotMutateInputs(t *testing.T) {
	base := map[string]interface{}{"a": map[string]interface{}{"x": 1, "y": 2}}
	overlay := map[string]interface{}{"a": map[string]interface{}{"y": 3}}

	merged := mergeMaps(base, overlay)

	assert.Equal(t, 3, merged["a"].(map[string]interface{})["y"])
	assert.Equal(t, 1, merged["a"].(map[string]interface{})["x"])
	assert.Equal(t, 2, base["a"].(map[string]interface{})["y"])
}
