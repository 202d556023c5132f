package services

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeys() *KeyringService {
	return NewKeyringServiceWith(keyring.NewArrayKeyring(nil))
}

func TestKeyringService_StoreGetDelete(t *testing.T) {
	keys := newTestKeys()

	require.NoError(t, keys.StoreApiKey("claude", []byte("sk-ant-abc")))
	got, err := keys.GetApiKey("claude")
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-abc", got)

	require.NoError(t, keys.DeleteApiKey("claude"))
	got, err = keys.GetApiKey("claude")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestKeyringService_MissingKeyIsNotAnError(t *testing.T) {
	keys := newTestKeys()

	got, err := keys.GetApiKey("gemini")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, keys.DeleteApiKey("gemini"))
}

func TestKeyringService_RejectsEmptyInput(t *testing.T) {
	keys := newTestKeys()

	assert.Error(t, keys.StoreApiKey("claude", nil))
	assert.Error(t, keys.StoreApiKey("", []byte("x")))
	_, err := keys.GetApiKey("")
	assert.Error(t, err)
}

func TestKeyringService_ListApiKeys(t *testing.T) {
	keys := newTestKeys()
	require.NoError(t, keys.StoreApiKey("claude", []byte("sk-ant-abc")))
	require.NoError(t, keys.StoreApiKey("gemini", []byte("AIza-abc")))

	list, err := keys.ListApiKeys()
	require.NoError(t, err)
	require.Len(t, list, 2)
	providers := []string{list[0]["provider"], list[1]["provider"]}
	assert.ElementsMatch(t, []string{"claude", "gemini"}, providers)
}

func TestNewKeyringService_FileBackend(t *testing.T) {
	keys, err := NewKeyringService(KeyringConfig{Backend: "file", Dir: t.TempDir(), Password: "secret"})
	require.NoError(t, err)

	require.NoError(t, keys.StoreApiKey("claude", []byte("sk-ant-file")))
	got, err := keys.GetApiKey("claude")
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-file", got)
}
