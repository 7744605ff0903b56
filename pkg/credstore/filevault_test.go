package credstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileVaultRoundTrip(t *testing.T) {
	vault := newFileVault(t.TempDir(), "elev")

	require.NoError(t, vault.set("credentials", `{"cookies":{"JSESSIONID":"abc"}}`))

	value, err := vault.get("credentials")
	require.NoError(t, err)
	assert.Equal(t, `{"cookies":{"JSESSIONID":"abc"}}`, value)
}

func TestFileVaultPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	first := newFileVault(dir, "elev")
	require.NoError(t, first.set("credentials", "secret"))

	second := newFileVault(dir, "elev")
	value, err := second.get("credentials")
	require.NoError(t, err)
	assert.Equal(t, "secret", value)
}

func TestFileVaultContentIsSealed(t *testing.T) {
	dir := t.TempDir()
	vault := newFileVault(dir, "elev")
	require.NoError(t, vault.set("credentials", "super-secret-cookie"))

	raw, err := os.ReadFile(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "super-secret-cookie")
}

func TestFileVaultGetMissingKey(t *testing.T) {
	vault := newFileVault(t.TempDir(), "elev")
	require.NoError(t, vault.set("other", "x"))

	_, err := vault.get("credentials")
	assert.Error(t, err)
}

func TestFileVaultDelete(t *testing.T) {
	vault := newFileVault(t.TempDir(), "elev")
	require.NoError(t, vault.set("credentials", "secret"))

	require.NoError(t, vault.delete("credentials"))
	_, err := vault.get("credentials")
	assert.Error(t, err)

	assert.Error(t, vault.delete("credentials"))
}

func TestFileVaultRejectsTamperedFile(t *testing.T) {
	dir := t.TempDir()
	vault := newFileVault(dir, "elev")
	require.NoError(t, vault.set("credentials", "secret"))

	path := filepath.Join(dir, "credentials.enc")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	_, err = vault.get("credentials")
	assert.Error(t, err)
}
