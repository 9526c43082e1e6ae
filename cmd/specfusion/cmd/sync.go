package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specfusion/specfusion/internal/adapter"
	"github.com/specfusion/specfusion/internal/adapter/platforms"
	"github.com/specfusion/specfusion/internal/adapter/wecom"
	"github.com/specfusion/specfusion/internal/config"
	"github.com/specfusion/specfusion/internal/output"
	"github.com/specfusion/specfusion/internal/profiling"
	"github.com/specfusion/specfusion/internal/store"
	"github.com/specfusion/specfusion/internal/syncrun"
)

func newSyncCmd() *cobra.Command {
	var (
		all         bool
		incremental bool
		limit       int
		apiURL      string
		adminToken  string
		cpuProfile  string
		memProfile  string
	)

	cmd := &cobra.Command{
		Use:   "sync [source]",
		Short: "Sync one documentation source, or all with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("specify a source or use --all")
			}
			out := output.New(cmd.OutOrStdout())

			if cpuProfile != "" {
				stop, err := profiling.StartCPU(cpuProfile)
				if err != nil {
					return err
				}
				defer stop()
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if apiURL != "" {
				cfg.APIURL = apiURL
			}
			if adminToken != "" {
				cfg.AdminToken = adminToken
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			registry, err := buildRegistry(cfg, st)
			if err != nil {
				return err
			}

			runner := syncrun.NewRunner(registry, syncrun.NewClient(cfg.APIURL, cfg.AdminToken), st)
			opts := syncrun.Options{Incremental: incremental, Limit: limit}

			var results []*syncrun.Result
			if all {
				results, err = runner.RunAll(cmd.Context(), opts)
			} else {
				var result *syncrun.Result
				result, err = runner.RunSource(cmd.Context(), args[0], opts)
				if result != nil {
					results = append(results, result)
				}
			}

			out.Plain(syncrun.Summary(results))

			if memProfile != "" {
				if werr := profiling.WriteHeap(memProfile); werr != nil {
					out.Warnf("heap profile not written: %v", werr)
				}
			}
			if err != nil {
				return err
			}
			if n := totalErrors(results); n > 0 {
				return fmt.Errorf("%d documents failed", n)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Sync every registered source")
	cmd.Flags().BoolVar(&incremental, "incremental", false, "Only fetch documents changed in the last 7 days")
	cmd.Flags().IntVar(&limit, "limit", 0, "Truncate the catalog to N entries (debug aid)")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "Server base URL (overrides SPECFUSION_API_URL)")
	cmd.Flags().StringVar(&adminToken, "admin-token", "", "Admin bearer token (overrides ADMIN_TOKEN)")
	cmd.Flags().StringVar(&cpuProfile, "cpuprofile", "", "Write a CPU profile to this file")
	cmd.Flags().StringVar(&memProfile, "memprofile", "", "Write a heap profile to this file after the run")
	return cmd
}

func totalErrors(results []*syncrun.Result) int {
	n := 0
	for _, r := range results {
		n += r.Errors
	}
	return n
}

// buildRegistry assembles the adapter registry: built-in platforms,
// Wecom, and any OpenAPI sources persisted in the store.
func buildRegistry(cfg *config.Config, st *store.Store) (*adapter.Registry, error) {
	registry := adapter.NewRegistry()
	platforms.Register(registry, nil)

	registry.Register(store.SourceWecom, func() (adapter.Adapter, error) {
		jar, err := wecom.NewCookieJar(cfg.WecomCookieFile)
		if err != nil {
			return nil, err
		}
		return wecom.New(jar), nil
	})

	if err := registerOpenAPISources(registry, st); err != nil {
		return nil, err
	}
	return registry, nil
}
