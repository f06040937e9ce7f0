package cli

import (
	"fmt"
	"os"

	"github.com/evcraddock/churchdesk/internal/config"
)

// remote resolves the server and API key for commands that call the API.
// A broken cli.yaml is reported and the environment alone is used.
func remote() config.Remote {
	r, err := config.LoadRemote("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		r = config.Remote{ServerURL: config.DefaultServerURL}
		if v := os.Getenv("DESK_SERVER_URL"); v != "" {
			r.ServerURL = v
		}
		r.APIKey = os.Getenv("DESK_API_KEY")
	}
	return r
}

// updateRemote applies change to the saved cli.yaml, leaving environment
// overrides out of the file.
func updateRemote(change func(*config.Remote) bool) error {
	path, err := config.RemotePath()
	if err != nil {
		return err
	}
	saved, err := config.ReadRemote(path)
	if err != nil {
		return err
	}
	if !change(&saved) {
		return nil
	}
	return saved.Save(path)
}
