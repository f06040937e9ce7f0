package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evcraddock/churchdesk/internal/config"
)

var validKey = "dk_" + strings.Repeat("5e", 32)

// isolateRemote points cli.yaml at a fresh home with no DESK_ overrides.
func isolateRemote(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"DESK_SERVER_URL", "DESK_API_KEY"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	return filepath.Join(home, ".config", "churchdesk", "cli.yaml")
}

func savedRemote(t *testing.T, path string) config.Remote {
	t.Helper()
	r, err := config.ReadRemote(path)
	require.NoError(t, err)
	return r
}

func TestLoginSavesKeyAndServer(t *testing.T) {
	path := isolateRemote(t)

	var out bytes.Buffer
	err := runLogin(&out, strings.NewReader(" "+validKey+" \n"), loginOptions{
		server:    "https://office.example.org/",
		noBrowser: true,
	})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "https://office.example.org/settings")
	assert.Contains(t, out.String(), "Saved key dk_5e5e5")
	assert.Equal(t, config.Remote{ServerURL: "https://office.example.org", APIKey: validKey}, savedRemote(t, path))
}

func TestLoginKeepsSavedServer(t *testing.T) {
	path := isolateRemote(t)
	require.NoError(t, config.Remote{ServerURL: "http://annex:9090", APIKey: "dk_old"}.Save(path))

	var out bytes.Buffer
	require.NoError(t, runLogin(&out, strings.NewReader(validKey), loginOptions{noBrowser: true}))

	assert.Contains(t, out.String(), "http://annex:9090/settings")
	assert.Equal(t, config.Remote{ServerURL: "http://annex:9090", APIKey: validKey}, savedRemote(t, path))
}

func TestLoginDoesNotSaveEnvironmentServer(t *testing.T) {
	path := isolateRemote(t)
	t.Setenv("DESK_SERVER_URL", "http://from-env:7070")

	var out bytes.Buffer
	require.NoError(t, runLogin(&out, strings.NewReader(validKey+"\n"), loginOptions{noBrowser: true}))

	assert.Contains(t, out.String(), "http://from-env:7070/settings")
	assert.Equal(t, config.Remote{APIKey: validKey}, savedRemote(t, path))
}

func TestLoginRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  loginOptions
		want  string
	}{
		{"empty input", "\n", loginOptions{}, "no API key"},
		{"wrong prefix", "sk_" + strings.Repeat("5e", 32) + "\n", loginOptions{}, "not a churchdesk API key"},
		{"truncated", "dk_5e5e\n", loginOptions{}, "not a churchdesk API key"},
		{"bad server", validKey + "\n", loginOptions{server: "office:9090"}, "server URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := isolateRemote(t)
			tt.opts.noBrowser = true

			var out bytes.Buffer
			err := runLogin(&out, strings.NewReader(tt.input), tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			_, statErr := os.Stat(path)
			assert.True(t, os.IsNotExist(statErr), "nothing should be saved")
		})
	}
}

func TestPromptKeyHidesMostOfABadKey(t *testing.T) {
	_, err := promptKey(&bytes.Buffer{}, strings.NewReader("sk_supersecretvalue\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sk_sup…")
	assert.NotContains(t, err.Error(), "supersecret")
}

func TestBrowserCommand(t *testing.T) {
	name, args, err := browserCommand("linux", "http://x/settings")
	require.NoError(t, err)
	assert.Equal(t, "xdg-open", name)
	assert.Equal(t, []string{"http://x/settings"}, args)

	name, _, err = browserCommand("darwin", "http://x/settings")
	require.NoError(t, err)
	assert.Equal(t, "open", name)

	_, args, err = browserCommand("windows", "http://x/settings")
	require.NoError(t, err)
	assert.Equal(t, "http://x/settings", args[len(args)-1])

	_, _, err = browserCommand("plan9", "http://x/settings")
	assert.Error(t, err)
}
