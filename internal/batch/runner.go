package batch

import (
	"context"

	"codeberg.org/snonux/firetrans/internal/session"
)

// Submitter is the part of a session a batch run needs
type Submitter interface {
	Submit(ctx context.Context, text string) session.State
	View() session.View
}

// Summary counts the outcome of a batch run
type Summary struct {
	Total      int
	Saved      int
	SaveFailed int
	Failed     int
}

// Run submits words in order. report, if set, is called after each word
// with the session view at that point. Run stops early when ctx is done.
func Run(ctx context.Context, sub Submitter, words []string, report func(word string, view session.View)) Summary {
	summary := Summary{Total: len(words)}

	for _, word := range words {
		if ctx.Err() != nil {
			break
		}

		switch sub.Submit(ctx, word) {
		case session.StateSaved:
			summary.Saved++
		case session.StateSaveFailed:
			summary.SaveFailed++
		default:
			summary.Failed++
		}

		if report != nil {
			report(word, sub.View())
		}
	}

	return summary
}
