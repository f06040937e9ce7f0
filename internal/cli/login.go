package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/churchdesk/internal/auth"
	"github.com/evcraddock/churchdesk/internal/config"
)

type loginOptions struct {
	server    string
	noBrowser bool
}

func newLoginCmd() *cobra.Command {
	var opts loginOptions
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key for a churchdesk server",
		Long: `Points you at the server's settings page, where staff create API keys,
and saves the key you paste into ~/.config/churchdesk/cli.yaml for remote commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.OutOrStdout(), cmd.InOrStdin(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.server, "server", "", "server URL to save with the key")
	cmd.Flags().BoolVar(&opts.noBrowser, "no-browser", false, "print the settings URL without opening a browser")
	return cmd
}

func runLogin(out io.Writer, in io.Reader, opts loginOptions) error {
	server := strings.TrimRight(opts.server, "/")
	if server == "" {
		server = remote().ServerURL
	} else if err := config.CheckServerURL(server); err != nil {
		return err
	}

	keysPage := server + "/settings"
	fmt.Fprintf(out, "Create an API key at %s\n", keysPage)
	if !opts.noBrowser {
		if err := openBrowser(keysPage); err != nil {
			fmt.Fprintf(out, "(could not open a browser: %v)\n", err)
		}
	}

	key, err := promptKey(out, in)
	if err != nil {
		return err
	}

	err = updateRemote(func(r *config.Remote) bool {
		r.APIKey = key
		if opts.server != "" {
			r.ServerURL = server
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("saving API key: %w", err)
	}
	fmt.Fprintf(out, "✓ Saved key %s… for %s\n", key[:8], server)
	return nil
}

// promptKey reads one line from in and checks it is a churchdesk key.
func promptKey(out io.Writer, in io.Reader) (string, error) {
	fmt.Fprint(out, "API key: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading API key: %w", err)
	}
	key := strings.TrimSpace(line)
	switch {
	case key == "":
		return "", errors.New("no API key entered")
	case !auth.LooksLikeAPIKey(key):
		return "", fmt.Errorf("%q is not a churchdesk API key (they start with dk_)", abbreviate(key))
	}
	return key, nil
}

// abbreviate keeps a mistyped secret out of the terminal scrollback.
func abbreviate(s string) string {
	if len(s) <= 6 {
		return s
	}
	return s[:6] + "…"
}

// browserCommand names the program that opens url on goos.
func browserCommand(goos, url string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{url}, nil
	}
	return "", nil, fmt.Errorf("no browser launcher for %s", goos)
}

func openBrowser(url string) error {
	name, args, err := browserCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}
	cmd := exec.Command(name, args...)
	cmd.Stdout, cmd.Stderr = io.Discard, os.Stderr
	return cmd.Start()
}
