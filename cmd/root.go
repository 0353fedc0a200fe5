// file: cmd/root.go
// version: 1.0.0
// guid: 9d0e1f2a-3b4c-5d6e-7f8a-9b0c1d2e3f4a

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gofleetadvisor/fleetdocs/internal/config"
	"github.com/gofleetadvisor/fleetdocs/internal/extract"
	"github.com/gofleetadvisor/fleetdocs/internal/ingest"
	"github.com/gofleetadvisor/fleetdocs/internal/mail"
	"github.com/gofleetadvisor/fleetdocs/internal/matcher"
	"github.com/gofleetadvisor/fleetdocs/internal/metrics"
	"github.com/gofleetadvisor/fleetdocs/internal/registry"
	"github.com/gofleetadvisor/fleetdocs/internal/server"
	"github.com/gofleetadvisor/fleetdocs/internal/storage"
	"github.com/gofleetadvisor/fleetdocs/internal/store"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fleetdocs",
	Short: "File fleet maintenance documents from email and serve retrieval",
	Long: `Fleetdocs watches a shared inbox for shop notifications, resolves the
customer named in each email against the canonical company roster, files
invoice and DOT inspection PDFs under a structured naming scheme, and
serves structured retrieval over the filed documents.`,
}

// ingestCmd runs one pass over the inbox.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Process the inbox once",
	Long:  `Process every unhandled inbox message once: resolve, file, log, relabel.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		metrics.Register()

		deps, err := buildDeps(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.logStore.Close()

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		processor := ingest.NewProcessor(deps.source, deps.registry, nil,
			deps.extractor, deps.client, deps.logStore, nil, ingest.Options{
				SenderDomain:    config.AppConfig.SenderDomain,
				MessageInterval: config.AppConfig.MessageInterval,
				BatchSize:       config.AppConfig.BatchSize,
				BatchPause:      config.AppConfig.BatchPause,
				DryRun:          dryRun,
				ShowProgress:    true,
			})

		stats, err := processor.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Inbox pass complete: %d listed, %d filed (%d documents), %d skipped, %d failed\n",
			stats.Listed, stats.Filed, stats.Documents, stats.Skipped, stats.Failed)
		return nil
	},
}

// watchCmd backfills from the drop folder and keeps watching it.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the drop folder for pre-named documents",
	Long: `Upload already-named PDFs copied into the drop folder. Filenames must
follow the document naming scheme; anything else is left in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		metrics.Register()

		if config.AppConfig.DropFolder == "" {
			return fmt.Errorf("drop folder not configured")
		}
		client := supabaseClient()

		w := ingest.NewWatcher(client, config.AppConfig.DropFolder, 0)
		if err := w.Start(cmd.Context()); err != nil {
			return err
		}
		defer w.Stop()

		fmt.Printf("Watching %s, Ctrl-C to stop\n", config.AppConfig.DropFolder)
		<-cmd.Context().Done()
		return nil
	},
}

// serveCmd starts the retrieval API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the retrieval API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := supabaseClient()
		reg := registry.NewProvider(client, 0)

		cfg := server.Config{
			Host:               config.AppConfig.Host,
			Port:               config.AppConfig.Port,
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       15 * time.Second,
			IdleTimeout:        60 * time.Second,
			RateLimitPerMinute: config.AppConfig.RateLimitPerMinute,
			RateLimitBurst:     config.AppConfig.RateLimitBurst,
		}
		srv := server.NewServer(client, client, reg, cfg)
		return srv.Start(cfg)
	},
}

// resolveCmd resolves one free-text company name from the command line.
var resolveCmd = &cobra.Command{
	Use:   "resolve <name>",
	Short: "Resolve a free-text company name against the roster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := supabaseClient()
		reg, err := registry.NewProvider(client, 0).Snapshot(cmd.Context())
		if err != nil {
			return err
		}

		res := matcher.Resolve(args[0], reg)
		return printJSON(res)
	},
}

// companiesCmd lists the canonical roster.
var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List canonical company keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := supabaseClient()
		reg, err := registry.NewProvider(client, 0).Snapshot(cmd.Context())
		if err != nil {
			return err
		}
		for _, key := range reg.Keys() {
			fmt.Println(key)
		}
		return nil
	},
}

// logCmd shows recent processing-log entries.
var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent processing log entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		logStore, err := store.NewSQLiteStore(config.AppConfig.DatabasePath)
		if err != nil {
			return err
		}
		defer logStore.Close()

		n, _ := cmd.Flags().GetInt("limit")
		entries, err := logStore.Recent(n)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s  %-8s %-30s %s\n",
				e.ProcessedAt.Format("2006-01-02 15:04:05"), e.Status, e.Company, e.Detail)
		}
		return nil
	},
}

type deps struct {
	client    *storage.SupabaseClient
	source    mail.Source
	registry  *registry.Provider
	extractor extract.MetadataExtractor
	logStore  *store.SQLiteStore
}

func supabaseClient() *storage.SupabaseClient {
	return storage.NewSupabaseClient(config.AppConfig.SupabaseURL, config.AppConfig.SupabaseServiceKey)
}

func buildDeps(ctx context.Context) (*deps, error) {
	if config.AppConfig.SupabaseURL == "" {
		return nil, fmt.Errorf("supabase_url not configured")
	}
	if config.AppConfig.GmailUser == "" {
		return nil, fmt.Errorf("gmail_user not configured")
	}

	client := supabaseClient()

	source, err := mail.NewGmailSource(ctx, config.AppConfig.GmailCredentialsFile, config.AppConfig.GmailUser)
	if err != nil {
		return nil, err
	}

	logStore, err := store.NewSQLiteStore(config.AppConfig.DatabasePath)
	if err != nil {
		return nil, err
	}

	return &deps{
		client:   client,
		source:   source,
		registry: registry.NewProvider(client, 0),
		extractor: extract.NewOpenAIExtractor(config.AppConfig.OpenAIAPIKey,
			config.AppConfig.OpenAIModel, config.AppConfig.EnableOpenAI),
		logStore: logStore,
	}, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, config.InitConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.fleetdocs.yaml)")
	rootCmd.PersistentFlags().String("db", "fleetdocs.db", "path to the processing log database")
	rootCmd.PersistentFlags().String("supabase-url", "", "Supabase project URL")
	rootCmd.PersistentFlags().String("gmail-user", "", "mailbox address to process")
	rootCmd.PersistentFlags().String("sender-domain", "", "only process mail from this domain")

	viper.BindPFlag("database_path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("supabase_url", rootCmd.PersistentFlags().Lookup("supabase-url"))
	viper.BindPFlag("gmail_user", rootCmd.PersistentFlags().Lookup("gmail-user"))
	viper.BindPFlag("sender_domain", rootCmd.PersistentFlags().Lookup("sender-domain"))

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(companiesCmd)
	rootCmd.AddCommand(logCmd)

	ingestCmd.Flags().Bool("dry-run", false, "process and log without uploading or relabeling")

	serveCmd.Flags().String("port", "8080", "port to bind")
	serveCmd.Flags().String("host", "0.0.0.0", "host to bind")
	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("host", serveCmd.Flags().Lookup("host"))

	watchCmd.Flags().String("drop-folder", "", "local folder to watch for pre-named PDFs")
	viper.BindPFlag("drop_folder", watchCmd.Flags().Lookup("drop-folder"))

	logCmd.Flags().Int("limit", 50, "number of entries to show")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".fleetdocs")
	}

	viper.SetEnvPrefix("FLEETDOCS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
