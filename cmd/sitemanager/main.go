package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shokoko2010/site-Manage-sub000/internal/app"
	"github.com/shokoko2010/site-Manage-sub000/internal/config"
	"github.com/shokoko2010/site-Manage-sub000/internal/domain"
	"github.com/shokoko2010/site-Manage-sub000/internal/logging"
	"github.com/shokoko2010/site-Manage-sub000/internal/usecase"
)

var rootCmd = &cobra.Command{
	Use:   "sitemanager",
	Short: "Manage content across multiple remote sites",
	Long: `sitemanager keeps a local content library reconciled against every
registered remote site and publishes local drafts back out.`,
	SilenceUsage: true,
}

// withManager loads config, opens the snapshot store and hands a ready
// Manager to the command body.
func withManager(fn func(ctx context.Context, m *app.Manager) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg := config.Load()
		logger := logging.New(cfg.Logging.Level)

		m, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer m.Close()

		return fn(cmd.Context(), m)
	}
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the library against every registered site",
	RunE: withManager(func(ctx context.Context, m *app.Manager) error {
		result, err := m.Sync(ctx)
		if err != nil {
			return err
		}
		printSyncResult(result)
		return nil
	}),
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the content library",
	RunE: withManager(func(ctx context.Context, m *app.Manager) error {
		printLibrary(m.Library())
		return nil
	}),
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Assign future publish dates to all unscheduled content",
	RunE: withManager(func(ctx context.Context, m *app.Manager) error {
		assigned, err := m.ScheduleAll(ctx)
		if err != nil {
			return err
		}
		if assigned == 0 {
			fmt.Println("nothing to schedule")
			return nil
		}
		fmt.Printf("scheduled %d item(s)\n", assigned)
		return nil
	}),
}

var generateSite string

var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "Generate a new local draft article",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := strings.Join(args, " ")
		return withManager(func(ctx context.Context, m *app.Manager) error {
			article, err := m.Generate(ctx, topic, generateSite)
			if err != nil {
				return err
			}
			fmt.Printf("draft created: %s (%s)\n", article.Title, article.ID)
			return nil
		})(cmd, nil)
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <content-id>",
	Short: "Delete a locally authored draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return withManager(func(ctx context.Context, m *app.Manager) error {
			return m.RemoveDraft(ctx, id)
		})(cmd, nil)
	},
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Manage registered sites",
}

var sitesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show registered sites",
	RunE: withManager(func(ctx context.Context, m *app.Manager) error {
		printSites(m.Sites())
		return nil
	}),
}

var (
	addURL      string
	addUsername string
	addPassword string
	addVirtual  bool
)

var sitesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a site (probes real sites before accepting them)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withManager(func(ctx context.Context, m *app.Manager) error {
			site, err := m.AddSite(ctx, addURL, addUsername, addPassword, addVirtual)
			if err != nil {
				return err
			}
			fmt.Printf("registered %s (%s)\n", site.ID, site.Name)
			return nil
		})(cmd, nil)
	},
}

var sitesRemoveCmd = &cobra.Command{
	Use:   "remove <site-id>",
	Short: "Remove a site and re-reconcile the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return withManager(func(ctx context.Context, m *app.Manager) error {
			return m.RemoveSite(ctx, id)
		})(cmd, nil)
	},
}

type publishFlags struct {
	site       string
	status     string
	publishAt  string
	categories []string
	tags       []string
	price      string
	sku        string
	stock      string
}

func (f *publishFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.site, "site", "", "target site id (required)")
	cmd.Flags().StringVar(&f.status, "status", "draft", "draft or published")
	cmd.Flags().StringVar(&f.publishAt, "publish-at", "", "RFC3339 timestamp for scheduled publishing")
	cmd.Flags().StringSliceVar(&f.categories, "categories", nil, "category names")
	cmd.Flags().StringSliceVar(&f.tags, "tags", nil, "tag names")
	cmd.Flags().StringVar(&f.price, "price", "", "product regular price")
	cmd.Flags().StringVar(&f.sku, "sku", "", "product SKU")
	cmd.Flags().StringVar(&f.stock, "stock", "", "product stock status")
	_ = cmd.MarkFlagRequired("site")
}

func (f *publishFlags) options() (usecase.PublishOptions, error) {
	opts := usecase.PublishOptions{
		Categories: f.categories,
		Tags:       f.tags,
	}

	switch f.status {
	case "published":
		opts.Status = domain.StatusPublished
	case "draft", "":
		opts.Status = domain.StatusDraft
	default:
		return usecase.PublishOptions{}, fmt.Errorf("unknown status %q (want draft or published)", f.status)
	}

	if f.publishAt != "" {
		when, err := time.Parse(time.RFC3339, f.publishAt)
		if err != nil {
			return usecase.PublishOptions{}, fmt.Errorf("parse --publish-at: %w", err)
		}
		opts.PublishAt = &when
	}

	if f.price != "" || f.sku != "" || f.stock != "" {
		opts.Product = &usecase.ProductFields{
			RegularPrice: f.price,
			SKU:          f.sku,
			StockStatus:  f.stock,
		}
	}

	return opts, nil
}

func newPublishCmd() *cobra.Command {
	flags := &publishFlags{}
	cmd := &cobra.Command{
		Use:   "publish <content-id>",
		Short: "Publish a content item to a target site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			id := args[0]
			return withManager(func(ctx context.Context, m *app.Manager) error {
				result, err := m.Publish(ctx, id, flags.site, opts)
				if err != nil {
					return err
				}
				fmt.Printf("published as post %d: %s\n", result.PostID, result.PostLink)
				return nil
			})(cmd, nil)
		},
	}
	flags.register(cmd)
	return cmd
}

func newUpdateCmd() *cobra.Command {
	flags := &publishFlags{}
	cmd := &cobra.Command{
		Use:   "update <content-id>",
		Short: "Push local edits of a synced item back to its remote post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			id := args[0]
			return withManager(func(ctx context.Context, m *app.Manager) error {
				result, err := m.Update(ctx, id, flags.site, opts)
				if err != nil {
					return err
				}
				fmt.Printf("updated post %d: %s\n", result.PostID, result.PostLink)
				return nil
			})(cmd, nil)
		},
	}
	flags.register(cmd)
	return cmd
}

func init() {
	generateCmd.Flags().StringVar(&generateSite, "site", "", "pull prompt context from this registered site")

	sitesAddCmd.Flags().StringVar(&addURL, "url", "", "site URL (required)")
	sitesAddCmd.Flags().StringVar(&addUsername, "username", "", "API username")
	sitesAddCmd.Flags().StringVar(&addPassword, "app-password", "", "API application password")
	sitesAddCmd.Flags().BoolVar(&addVirtual, "virtual", false, "register a virtual (local-only) site")
	_ = sitesAddCmd.MarkFlagRequired("url")

	sitesCmd.AddCommand(sitesListCmd, sitesAddCmd, sitesRemoveCmd)
	rootCmd.AddCommand(syncCmd, listCmd, scheduleCmd, generateCmd, removeCmd, sitesCmd, newPublishCmd(), newUpdateCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
