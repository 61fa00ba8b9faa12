package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/slackmgr/dynadoc"
	"github.com/slackmgr/dynadoc/attr"
	"github.com/slackmgr/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is the dynadoc release printed by the version command.
const Version = "0.1.0"

// store is the part of *dynadoc.Client the commands use.
type store interface {
	Get(ctx context.Context, table, id string) (attr.Document, bool, error)
	GetItems(ctx context.Context, table string, ids []string) ([]attr.Document, error)
	List(ctx context.Context, table string, conditions []dynadoc.Condition) ([]attr.Document, error)
	Query(ctx context.Context, table string, key dynadoc.KeyCondition, opts *dynadoc.QueryOptions) ([]attr.Document, error)
	Create(ctx context.Context, table string, doc attr.Document, cond *dynadoc.Expression) (attr.Document, error)
	CreateItems(ctx context.Context, table string, docs []attr.Document) ([]attr.Document, error)
	Update(ctx context.Context, table string, doc attr.Document) (attr.Document, error)
	Remove(ctx context.Context, table string, doc attr.Document) (attr.Document, error)
	VerifyTable(ctx context.Context, table string) error
}

var (
	client store

	// connect is replaced in tests.
	connect = connectClient

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dynadoc",
		Short: "read and write JSON documents in DynamoDB tables",
		Long: fmt.Sprintf(`dynadoc (v%s)

Reads and writes schemaless JSON documents in DynamoDB tables keyed by a
string "id" attribute. Documents are plain JSON by default, or DynamoDB JSON
with --wire.`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: setupClient,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dynadoc",
		// Overrides the root hook so no client is created.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dynadoc v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.AddCommand(getCmd)
	RootCmd.AddCommand(getItemsCmd)
	RootCmd.AddCommand(listCmd)
	RootCmd.AddCommand(queryCmd)
	RootCmd.AddCommand(putCmd)
	RootCmd.AddCommand(putItemsCmd)
	RootCmd.AddCommand(updateCmd)
	RootCmd.AddCommand(deleteCmd)
	RootCmd.AddCommand(verifyCmd)
	RootCmd.AddCommand(versionCmd)

	flags := RootCmd.PersistentFlags()
	flags.String("region", "", "AWS region (defaults to the shared AWS configuration)")
	flags.String("profile", "", "shared AWS configuration profile")
	flags.String("endpoint-url", "", "override the DynamoDB endpoint, e.g. for DynamoDB Local")
	flags.Int("max-retries", 3, "maximum attempts for each DynamoDB request")
	flags.Int("batch-concurrency", 4, "concurrent batch write requests for put-items")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.Bool("wire", false, "read and write DynamoDB JSON instead of plain JSON")
	flags.Bool("delete-null-only", false, "update removes only null fields instead of every falsy field")
}

// initConfig loads .env files and binds DYNADOC_* environment variables.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("dynadoc")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func setupClient(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	logger, err := newLogger(cmd.ErrOrStderr(), viper.GetString("log-level"))
	if err != nil {
		return err
	}

	c, err := connect(cmd.Context(), logger)
	if err != nil {
		return err
	}

	client = c

	return nil
}

func connectClient(ctx context.Context, logger types.Logger) (store, error) {
	opts := []dynadoc.Option{
		dynadoc.WithLogger(logger),
		dynadoc.WithRegion(viper.GetString("region")),
		dynadoc.WithProfile(viper.GetString("profile")),
		dynadoc.WithEndpoint(viper.GetString("endpoint-url")),
		dynadoc.WithMaxRetryAttempts(viper.GetInt("max-retries")),
		dynadoc.WithBatchConcurrency(viper.GetInt("batch-concurrency")),
	}

	if viper.GetBool("delete-null-only") {
		opts = append(opts, dynadoc.WithUpdatePolicy(dynadoc.DeleteNullOnly))
	}

	c := dynadoc.New(nil, opts...)

	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := RootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}
