// Command bootstrap-key mints the first admin API key directly in the database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/guaupro/landing/internal/auth"
	"github.com/guaupro/landing/internal/model"
	"github.com/guaupro/landing/internal/repository"
)

type output struct {
	KeyID     string   `json:"key_id"`
	Key       string   `json:"key"`
	KeyPrefix string   `json:"key_prefix"`
	Owner     string   `json:"owner"`
	Scopes    []string `json:"scopes"`
}

var flags struct {
	databaseURL string
	owner       string
	name        string
	scopes      string
	env         string
	format      string
	timeout     time.Duration
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: read .env:", err)
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap-key",
		Short: "Create an admin API key for the landing admin API",
		Long: `Create an API key straight in PostgreSQL. Use it once to obtain the
first admin key; later keys are minted through POST /api/v1/admin/api-keys.

The plaintext key is printed once and never stored.

Examples:
  bootstrap-key --owner ops@guau.pro
  bootstrap-key --owner reports --scopes read --format json`,
		SilenceUsage: true,
		RunE:         runBootstrap,
	}

	f := cmd.Flags()
	f.StringVar(&flags.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	f.StringVar(&flags.owner, "owner", "system", "owner recorded on the key")
	f.StringVar(&flags.name, "name", "bootstrap", "API key name")
	f.StringVar(&flags.scopes, "scopes", model.ScopeAdmin, "comma-separated scopes (read,admin)")
	f.StringVar(&flags.env, "env", auth.EnvLive, "key environment (live or test)")
	f.StringVar(&flags.format, "format", "plain", "output format: plain or json")
	f.DurationVar(&flags.timeout, "timeout", 10*time.Second, "database timeout")
	return cmd
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	if flags.databaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if flags.format != "plain" && flags.format != "json" {
		return errors.New("invalid format; use plain or json")
	}

	scopes, err := parseScopes(flags.scopes)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
	defer cancel()

	repo, err := repository.New(ctx, flags.databaseURL, repository.PoolConfig{MaxConns: 1})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer repo.Close()

	generated, err := auth.GenerateKey(flags.env)
	if err != nil {
		return fmt.Errorf("generate api key: %w", err)
	}

	key := &model.APIKey{
		ID:        ulid.Make().String(),
		Owner:     flags.owner,
		KeyHash:   generated.Hash,
		KeyPrefix: generated.Prefix,
		Scopes:    scopes,
		Name:      flags.name,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.CreateAPIKey(ctx, key); err != nil {
		return fmt.Errorf("create api key: %w", err)
	}

	return writeOutput(cmd.OutOrStdout(), flags.format, output{
		KeyID:     key.ID,
		Key:       generated.Plaintext,
		KeyPrefix: key.KeyPrefix,
		Owner:     key.Owner,
		Scopes:    scopes,
	})
}

func writeOutput(w io.Writer, format string, out output) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	_, err := fmt.Fprintln(w, out.Key)
	return err
}

// parseScopes splits a comma-separated list. Empty input means admin.
func parseScopes(input string) ([]string, error) {
	scopes := make([]string, 0, 2)
	for _, part := range strings.Split(input, ",") {
		scope := strings.TrimSpace(part)
		if scope == "" {
			continue
		}
		if !slices.Contains(model.ValidScopes, scope) {
			return nil, fmt.Errorf("invalid scope: %s", scope)
		}
		if !slices.Contains(scopes, scope) {
			scopes = append(scopes, scope)
		}
	}
	if len(scopes) == 0 {
		scopes = []string{model.ScopeAdmin}
	}
	return scopes, nil
}
