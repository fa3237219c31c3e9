package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codeberg.org/snonux/firetrans/internal"
	"codeberg.org/snonux/firetrans/internal/logger"
)

// flag name -> viper key
var viperKeys = map[string]string{
	"log-level":    "log.level",
	"backend":      "store.backend",
	"collection":   "store.collection",
	"project":      "firestore.project",
	"credentials":  "firestore.credentials",
	"db":           "sqlite.path",
	"provider":     "translation.provider",
	"endpoint":     "translation.endpoint",
	"source":       "translation.source",
	"target":       "translation.target",
	"timeout":      "translation.timeout",
	"openai-model": "translation.openai_model",
}

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "firetrans",
		Short: "Translate words and keep a shared translation history",
		Long: `firetrans translates words through a public translation API and
stores every translation in a shared document collection (Cloud Firestore
by default, or a local SQLite file).

Examples:
  firetrans translate hello         # Translate and save "hello"
  firetrans translate --batch words.txt
  firetrans history                 # List saved translations, newest first
  firetrans watch                   # Follow the collection live
  firetrans clear                   # Delete every saved translation`,
		Version:       internal.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ApplyConfig(flags)
			logger.Init(logger.ParseLevel(flags.LogLevel))
			return validateFlags(flags)
		},
	}

	setupFlags(rootCmd, flags)

	rootCmd.AddCommand(
		newTranslateCommand(flags),
		newHistoryCommand(flags),
		newWatchCommand(flags),
		newClearCommand(flags),
	)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	pf := cmd.PersistentFlags()

	pf.StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.firetrans.yaml)")
	pf.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")

	// Store flags
	pf.StringVar(&flags.Backend, "backend", flags.Backend, "Store backend: firestore or sqlite")
	pf.StringVar(&flags.Collection, "collection", flags.Collection, "Collection holding translation records")
	pf.StringVar(&flags.Project, "project", "", "Google Cloud project ID (default: $GOOGLE_CLOUD_PROJECT)")
	pf.StringVar(&flags.Credentials, "credentials", "", "Service account JSON file (default: application default credentials)")
	pf.StringVar(&flags.DBPath, "db", flags.DBPath, "SQLite database file for the sqlite backend")

	// Translation flags
	pf.StringVar(&flags.Provider, "provider", flags.Provider, "Translation provider: mymemory or openai")
	pf.StringVar(&flags.Endpoint, "endpoint", flags.Endpoint, "MyMemory lookup endpoint")
	pf.StringVar(&flags.Source, "source", flags.Source, "Source language code")
	pf.StringVar(&flags.Target, "target", flags.Target, "Target language code")
	pf.DurationVar(&flags.Timeout, "timeout", flags.Timeout, "HTTP timeout for translation requests (0 uses the transport default)")
	pf.StringVar(&flags.OpenAIModel, "openai-model", flags.OpenAIModel, "OpenAI chat model for the openai provider")

	// Bind flags to viper
	bindFlagsToViper(pf)
}

func bindFlagsToViper(fs *pflag.FlagSet) {
	for name, key := range viperKeys {
		viper.BindPFlag(key, fs.Lookup(name))
	}
}

// ApplyConfig copies the merged flag, environment and config-file values
// back into flags. Explicit flags win over the config file.
func ApplyConfig(flags *Flags) {
	flags.LogLevel = viper.GetString("log.level")
	flags.Backend = viper.GetString("store.backend")
	flags.Collection = viper.GetString("store.collection")
	flags.Project = viper.GetString("firestore.project")
	flags.Credentials = viper.GetString("firestore.credentials")
	flags.DBPath = viper.GetString("sqlite.path")
	flags.Provider = viper.GetString("translation.provider")
	flags.Endpoint = viper.GetString("translation.endpoint")
	flags.Source = viper.GetString("translation.source")
	flags.Target = viper.GetString("translation.target")
	flags.Timeout = viper.GetDuration("translation.timeout")
	flags.OpenAIModel = viper.GetString("translation.openai_model")
}

func validateFlags(flags *Flags) error {
	switch flags.Backend {
	case BackendFirestore, BackendSQLite:
	default:
		return fmt.Errorf("unknown store backend: %s", flags.Backend)
	}

	switch flags.Provider {
	case ProviderMyMemory, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown translation provider: %s", flags.Provider)
	}

	if flags.Source == "" || flags.Target == "" {
		return fmt.Errorf("source and target languages are required")
	}

	if flags.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}

	return nil
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".firetrans" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".firetrans")
	}

	// Environment variables
	viper.SetEnvPrefix("FIRETRANS")
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	// First check environment variable
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}

	// Then check config file
	return viper.GetString("translation.openai_key")
}

// GetProjectID returns the Firestore project from flags or environment
func GetProjectID(flags *Flags) string {
	if flags.Project != "" {
		return flags.Project
	}
	return os.Getenv("GOOGLE_CLOUD_PROJECT")
}
