// Package cli implements zenithctl, a command-line front end that drives the
// presentation controller against a running server.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/d60-Lab/zenith-cms/internal/client"
	"github.com/d60-Lab/zenith-cms/internal/controller"
)

// DefaultServer is used when neither --server nor ZENITH_SERVER is set.
const DefaultServer = "http://localhost:3000"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Server  string
	Format  string // "text" | "json"
	Timeout time.Duration
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "zenithctl",
		Short: "Manage Zenith CMS posts",
		Long:  "zenithctl lists, reads, publishes, edits and deletes posts on a Zenith CMS server.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv("ZENITH_SERVER")
	if server == "" {
		server = DefaultServer
	}
	cmd.PersistentFlags().StringVarP(&opts.Server, "server", "s", server, "server base URL (env ZENITH_SERVER)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "per-request timeout")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))

	return cmd
}

// newController wires a controller whose notices go to the command's stderr.
func newController(opts *RootOptions, cmd *cobra.Command) *controller.Controller {
	api := client.New(opts.Server, client.WithTimeout(opts.Timeout))
	return controller.New(api, newStderrNotifier(cmd.ErrOrStderr()))
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
