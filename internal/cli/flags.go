package cli

import (
	"os"
	"path/filepath"
	"time"

	"codeberg.org/snonux/firetrans/internal/store"
	"codeberg.org/snonux/firetrans/internal/translation"
)

// Store backends
const (
	BackendFirestore = "firestore"
	BackendSQLite    = "sqlite"
)

// Translation providers
const (
	ProviderMyMemory = "mymemory"
	ProviderOpenAI   = "openai"
)

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile  string
	LogLevel string

	// Store flags
	Backend     string
	Collection  string
	Project     string
	Credentials string
	DBPath      string

	// Translation flags
	Provider    string
	Endpoint    string
	Source      string
	Target      string
	Timeout     time.Duration
	OpenAIModel string

	// translate command
	BatchFile string
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		LogLevel:    "info",
		Backend:     BackendFirestore,
		Collection:  store.DefaultCollection,
		DBPath:      defaultDBPath(),
		Provider:    ProviderMyMemory,
		Endpoint:    translation.DefaultEndpoint,
		Source:      translation.DefaultSource,
		Target:      translation.DefaultTarget,
		OpenAIModel: translation.DefaultOpenAIModel,
	}
}

func defaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "firetrans", "translations.db")
}
