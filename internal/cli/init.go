package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/routinely/internal/constants"
)

type InitCmd struct {
	Force bool `help:"Overwrite an existing config file with the current settings."`
}

func (c *InitCmd) Run(ctx *Context) error {
	path := ctx.Config.Path()
	_, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist) || (err == nil && c.Force):
		if err := ctx.Config.Save(); err != nil {
			return err
		}
		ctx.printf("Wrote config to: %s\n", path)
	case err != nil:
		return fmt.Errorf("failed to access config: %w", err)
	default:
		ctx.printf("Config already exists at: %s\n", path)
	}

	if ctx.Backend == nil {
		ctx.printf("Backend is %s, no local storage to initialize.\n", constants.BackendAPI)
		ctx.printf("Store your API token with '%s token set'.\n", constants.AppName)
		return nil
	}
	if err := ctx.Backend.Init(); err != nil {
		return err
	}
	ctx.printf("Initialized %s storage at: %s\n", ctx.Config.Backend, ctx.Backend.GetConfigPath())
	return nil
}
