package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evcraddock/churchdesk/internal/config"
)

func TestLogoutForgetsOnlyTheKey(t *testing.T) {
	path := isolateRemote(t)
	require.NoError(t, config.Remote{ServerURL: "http://office:9090", APIKey: validKey}.Save(path))

	var out bytes.Buffer
	require.NoError(t, runLogout(&out))

	assert.Contains(t, out.String(), "API key removed")
	assert.Equal(t, config.Remote{ServerURL: "http://office:9090"}, savedRemote(t, path))
}

func TestLogoutWithoutKey(t *testing.T) {
	isolateRemote(t)

	var out bytes.Buffer
	require.NoError(t, runLogout(&out))
	assert.Contains(t, out.String(), "No API key stored")
}

func TestLogoutMentionsEnvironmentKey(t *testing.T) {
	path := isolateRemote(t)
	require.NoError(t, config.Remote{APIKey: validKey}.Save(path))
	t.Setenv("DESK_API_KEY", validKey)

	var out bytes.Buffer
	require.NoError(t, runLogout(&out))
	assert.Contains(t, out.String(), "DESK_API_KEY is still set")
	assert.Empty(t, savedRemote(t, path).APIKey)
}
