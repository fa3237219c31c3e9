package cli

import (
	"context"
	"fmt"

	"google.golang.org/api/option"

	"codeberg.org/snonux/firetrans/internal/session"
	"codeberg.org/snonux/firetrans/internal/store"
	"codeberg.org/snonux/firetrans/internal/translation"
)

// OpenStore opens the configured backend
func OpenStore(ctx context.Context, flags *Flags) (store.Store, error) {
	switch flags.Backend {
	case BackendSQLite:
		return store.NewSQLiteStore(flags.DBPath, flags.Collection)

	case BackendFirestore:
		projectID := GetProjectID(flags)
		if projectID == "" {
			return nil, fmt.Errorf("firestore project not set: use --project or GOOGLE_CLOUD_PROJECT")
		}
		var opts []option.ClientOption
		if flags.Credentials != "" {
			opts = append(opts, option.WithCredentialsFile(flags.Credentials))
		}
		return store.NewFirestoreStore(ctx, projectID, flags.Collection, opts...)

	default:
		return nil, fmt.Errorf("unknown store backend: %s", flags.Backend)
	}
}

// NewTranslator creates the configured translation provider
func NewTranslator(flags *Flags) (translation.Translator, error) {
	switch flags.Provider {
	case ProviderMyMemory:
		return translation.NewMyMemoryClient(translation.Config{
			Endpoint: flags.Endpoint,
			Timeout:  flags.Timeout,
		}), nil

	case ProviderOpenAI:
		return translation.NewOpenAIClient(GetOpenAIKey(), flags.OpenAIModel, ""), nil

	default:
		return nil, fmt.Errorf("unknown translation provider: %s", flags.Provider)
	}
}

// NewSession builds a session over a freshly opened store. The caller owns
// the returned store and must close it after the session.
func NewSession(ctx context.Context, flags *Flags) (*session.Session, store.Store, error) {
	translator, err := NewTranslator(flags)
	if err != nil {
		return nil, nil, err
	}

	st, err := OpenStore(ctx, flags)
	if err != nil {
		return nil, nil, err
	}

	s := session.New(translator, st, session.Config{
		Source: flags.Source,
		Target: flags.Target,
	})
	return s, st, nil
}
