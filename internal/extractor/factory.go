package extractor

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"norelock.dev/listenify/gateway/internal/config"
	"norelock.dev/listenify/gateway/internal/transport"
	"norelock.dev/listenify/gateway/internal/utils"
)

// New builds the extraction client described by cfg. Streams always come
// from the Piped API; search comes from the configured backend.
func New(ctx context.Context, cfg config.ExtractorConfig, doer transport.Doer, logger *utils.Logger) (Client, error) {
	piped := NewPipedClient(cfg.PipedBaseURL, doer, logger)

	switch cfg.SearchBackend {
	case "", config.SearchBackendPiped:
		return piped, nil
	case config.SearchBackendYouTube:
		searcher, err := NewYouTubeSearcher(ctx, doer, cfg.YouTubeAPIKey, logger,
			option.WithUserAgent(cfg.UserAgent),
		)
		if err != nil {
			return nil, err
		}
		return NewComposite(searcher, piped), nil
	default:
		return nil, fmt.Errorf("unknown search backend %q", cfg.SearchBackend)
	}
}
