// Package cli is the command line interface of oauth-demo.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
)

// AppContext carries what commands need from the process.
type AppContext struct {
	Ctx     context.Context
	Stdout  io.Writer
	Stderr  io.Writer
	Version string
}

// CLI is the command line interface of oauth-demo.
type CLI struct {
	Serve   Serve          `kong:"cmd,help='Start the HTTP and gRPC servers.'"`
	Version VersionCommand `kong:"cmd,help='Print the build version.'"`

	Log LogOptions `embed:"" prefix:"log-"`

	kong *kong.Kong
	kctx *kong.Context
}

// New initializes the command-line interface.
func New() (*CLI, error) {
	c := &CLI{}
	kparser, err := kong.New(c,
		kong.Name("oauth-demo"),
		kong.Description("Demonstration API with a public and a JWT protected endpoint."),
		kong.UsageOnError(),
		kong.DefaultEnvars("OAUTH_DEMO"),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			Summary:             true,
			NoExpandSubcommands: true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed creating the Kong parser: %w", err)
	}

	c.kong = kparser

	return c, nil
}

// Parse the given command line arguments. This method must be called before
// Execute.
func (c *CLI) Parse(args []string) error {
	kctx, err := c.kong.Parse(args)
	if err != nil {
		return fmt.Errorf("failed parsing CLI arguments: %w", err)
	}
	c.kctx = kctx

	return nil
}

// Execute runs the parsed command.
func (c *CLI) Execute(appCtx *AppContext) error {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	c.kong.Stdout = appCtx.Stdout
	c.kong.Stderr = appCtx.Stderr

	logger, err := c.Log.Build(appCtx.Stderr)
	if err != nil {
		return err
	}

	//nolint:wrapcheck // Command errors are already descriptive.
	return c.kctx.Run(appCtx, logger)
}

// Command returns the full path of the executed command.
func (c *CLI) Command() string {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	cmdPath := []string{}
	for _, p := range c.kctx.Path {
		if p.Command != nil {
			cmdPath = append(cmdPath, p.Command.Name)
		}
	}

	return strings.Join(cmdPath, " ")
}

// VersionCommand prints the build version.
type VersionCommand struct{}

// Run the version command.
func (VersionCommand) Run(appCtx *AppContext) error {
	_, err := fmt.Fprintln(appCtx.Stdout, appCtx.Version)
	return err
}
