package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/specfusion/specfusion/internal/adapter"
	"github.com/specfusion/specfusion/internal/adapter/openapi"
	"github.com/specfusion/specfusion/internal/output"
	"github.com/specfusion/specfusion/internal/store"
	"github.com/specfusion/specfusion/internal/syncrun"
)

// sourceConfig is the JSON blob persisted in sources.config for
// dynamically added sources.
type sourceConfig struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	SpecURL string `json:"spec_url"`
}

func newListSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-sources",
		Short: "List registered documentation sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
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

			sources, err := st.Sources(cmd.Context())
			if err != nil {
				return err
			}
			synced := make(map[string]*store.Source, len(sources))
			for _, src := range sources {
				synced[src.ID] = src
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SOURCE\tDOCS\tLAST SYNCED")
			for _, id := range registry.Sources() {
				docs, lastSynced := 0, "never"
				if src, ok := synced[id]; ok {
					docs = src.DocCount
					if !src.LastSynced.IsZero() {
						lastSynced = src.LastSynced.Format("2006-01-02 15:04")
					}
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", id, docs, lastSynced)
			}
			return w.Flush()
		},
	}
}

func newAddOpenAPICmd() *cobra.Command {
	var (
		name    string
		specURL string
		runSync bool
	)

	cmd := &cobra.Command{
		Use:   "add-openapi <id>",
		Short: "Register an OpenAPI/Swagger spec as a documentation source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if specURL == "" {
				return fmt.Errorf("--spec-url is required")
			}
			if name == "" {
				name = id
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := persistOpenAPISource(cmd.Context(), st, id, name, specURL); err != nil {
				return err
			}
			out := output.New(cmd.OutOrStdout())
			out.Successf("registered OpenAPI source %s (%s)", id, specURL)

			if !runSync {
				return nil
			}
			registry, err := buildRegistry(cfg, st)
			if err != nil {
				return err
			}
			runner := syncrun.NewRunner(registry, syncrun.NewClient(cfg.APIURL, cfg.AdminToken), st)
			result, err := runner.RunSource(cmd.Context(), id, syncrun.Options{})
			if result != nil {
				out.Plain(syncrun.Summary([]*syncrun.Result{result}))
			}
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name for the source")
	cmd.Flags().StringVar(&specURL, "spec-url", "", "URL of the OpenAPI/Swagger document")
	cmd.Flags().BoolVar(&runSync, "sync", false, "Sync the source immediately after registering")
	return cmd
}

func persistOpenAPISource(ctx context.Context, st *store.Store, id, name, specURL string) error {
	if err := st.UpsertSource(ctx, id, name, specURL); err != nil {
		return err
	}
	blob, err := json.Marshal(sourceConfig{Type: "openapi", Name: name, SpecURL: specURL})
	if err != nil {
		return err
	}
	return st.SetSourceConfig(ctx, id, string(blob))
}

// registerOpenAPISources re-registers persisted OpenAPI sources so they
// survive restarts.
func registerOpenAPISources(registry *adapter.Registry, st *store.Store) error {
	sources, err := st.Sources(context.Background())
	if err != nil {
		return err
	}
	for _, src := range sources {
		if src.Config == "" {
			continue
		}
		var cfg sourceConfig
		if err := json.Unmarshal([]byte(src.Config), &cfg); err != nil || cfg.Type != "openapi" {
			continue
		}
		id, name, specURL := src.ID, cfg.Name, cfg.SpecURL
		if name == "" {
			name = src.Name
		}
		registry.Register(id, func() (adapter.Adapter, error) {
			return openapi.New(id, name, specURL), nil
		})
	}
	return nil
}
