package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/julianstephens/routinely/internal/config"
	"github.com/julianstephens/routinely/internal/keyring"
)

type TokenCmd struct {
	Set    TokenSetCmd    `cmd:"" help:"Store the API token in the OS keyring."`
	Delete TokenDeleteCmd `cmd:"" help:"Remove the API token from the OS keyring."`
	Status TokenStatusCmd `cmd:"" help:"Check keyring availability and token state."`
}

// TokenSetCmd stores the API token in the OS keyring
type TokenSetCmd struct {
	Token string `arg:"" help:"API token."`
}

func (cmd *TokenSetCmd) Run(ctx *Context) error {
	token := strings.TrimSpace(cmd.Token)
	if err := keyring.SetToken(token); err != nil {
		return err
	}
	ctx.println("✓ API token stored successfully in OS keyring")
	return nil
}

// TokenDeleteCmd removes the API token from the OS keyring
type TokenDeleteCmd struct{}

func (cmd *TokenDeleteCmd) Run(ctx *Context) error {
	if err := keyring.DeleteToken(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no API token found in keyring")
		}
		return err
	}
	ctx.println("✓ API token deleted from OS keyring")
	return nil
}

// TokenStatusCmd reports where the API token would be read from
type TokenStatusCmd struct{}

func (cmd *TokenStatusCmd) Run(ctx *Context) error {
	if !keyring.IsAvailable() {
		ctx.println("❌ OS keyring is not available on this system")
		if os.Getenv(config.EnvTokenVar) != "" {
			ctx.printf("✓ API token is set in %s\n", config.EnvTokenVar)
			return nil
		}
		return errors.New("keyring unavailable")
	}

	ctx.println("✓ OS keyring is available")
	token, err := keyring.GetToken()
	switch {
	case err == nil:
		ctx.printf("✓ API token is stored in keyring (%s)\n", maskToken(token))
	case errors.Is(err, keyring.ErrNotFound):
		ctx.println("ℹ No API token stored in keyring")
		if os.Getenv(config.EnvTokenVar) != "" {
			ctx.printf("✓ API token is set in %s\n", config.EnvTokenVar)
		}
	default:
		return fmt.Errorf("failed to read API token: %w", err)
	}
	return nil
}

// maskToken keeps only the last four characters
func maskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return strings.Repeat("*", 4) + token[len(token)-4:]
}
