package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jagdteam/clicr/internal/embed"
	"github.com/jagdteam/clicr/internal/ui"
)

// apiCheckTimeout bounds the live reachability probe so doctor never hangs.
const apiCheckTimeout = 15 * time.Second

func newDoctorCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and diagnose issues",
		Long: `Run diagnostics to make sure clicr can operate.

Checks:
  - Configuration is valid
  - COHERE_API_KEY is set
  - Data directory is writable
  - A vector index exists for this project
  - The Cohere API is reachable (skipped with --offline)`,
		Example: `  # Run all checks
  clicr doctor

  # Skip the live API probe
  clicr doctor --offline`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, offline)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the live API reachability check")

	return cmd
}

func runDoctor(cmd *cobra.Command, offline bool) error {
	writer := ui.New(cmd.OutOrStdout())
	writer.Header("clicr doctor")

	proj, err := resolveProject("", "")
	if err != nil {
		writer.Errorf("configuration: %v", err)
		return fmt.Errorf("diagnostics failed")
	}
	writer.Statusf("", "Project root: %s", proj.root)

	failed := 0

	if err := proj.cfg.Validate(); err != nil {
		writer.Errorf("configuration: %v", err)
		failed++
	} else {
		writer.Success("configuration is valid")
	}

	haveKey := proj.cfg.Cohere.APIKey != ""
	if haveKey {
		writer.Success("COHERE_API_KEY is set")
	} else {
		writer.Error("COHERE_API_KEY is not set")
		writer.Status("", "export COHERE_API_KEY or add it to a .env file")
		failed++
	}

	if err := checkWritable(proj.dataDir); err != nil {
		writer.Errorf("data directory %s is not writable: %v", proj.dataDir, err)
		failed++
	} else {
		writer.Successf("data directory %s is writable", proj.dataDir)
	}

	if proj.indexExists() {
		writer.Success("vector index found")
	} else {
		writer.Warning("no vector index yet, run 'clicr ingest' to build one")
	}

	switch {
	case offline:
		writer.Status("", "API reachability check skipped (--offline)")
	case !haveKey:
		writer.Status("", "API reachability check skipped (no API key)")
	default:
		if err := checkAPI(cmd.Context(), proj); err != nil {
			writer.Errorf("Cohere API is not reachable: %v", err)
			failed++
		} else {
			writer.Success("Cohere API is reachable")
		}
	}

	writer.Newline()
	if failed > 0 {
		writer.Errorf("%d check(s) failed", failed)
		return fmt.Errorf("diagnostics failed")
	}
	writer.Success("All checks passed")
	return nil
}

// checkWritable verifies the data directory can be created and written.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// checkAPI embeds a short probe text to confirm the API accepts requests.
func checkAPI(ctx context.Context, proj *project) error {
	embedder, err := proj.newEmbedder()
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	ctx, cancel := context.WithTimeout(ctx, apiCheckTimeout)
	defer cancel()

	_, err = embedder.Embed(ctx, "clicr connectivity check", embed.InputTypeQuery)
	return err
}
