package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/viper"
	"norelock.dev/listenify/gateway/internal/bridge"
	"norelock.dev/listenify/gateway/internal/config"
	"norelock.dev/listenify/gateway/internal/extractor"
	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/services/media"
	"norelock.dev/listenify/gateway/internal/transport"
	"norelock.dev/listenify/gateway/internal/utils"
	"norelock.dev/listenify/gateway/pkg/jsonrpc"
)

// runner executes one named operation.
type runner interface {
	Run(ctx context.Context, op string, args map[string]any) (any, error)
	Close(ctx context.Context)
}

// newRunner picks the remote runner when --remote is set and an in-process
// bridge otherwise.
func newRunner(ctx context.Context, v *viper.Viper, logger *utils.Logger) (runner, error) {
	downloader := transport.NewDownloader(transport.WithLogger(logger))

	if remote := v.GetString(keyRemote); remote != "" {
		endpoint := rpcEndpoint(remote)
		logger.Debug("Using remote gateway", "endpoint", endpoint)
		return &remoteRunner{client: jsonrpc.NewClient(endpoint, downloader)}, nil
	}

	var client extractor.Client
	if v.GetBool(keyOffline) {
		client = extractor.StaticClient{}
	} else {
		cfg, err := config.LoadConfigFrom(v.GetString(keyConfig))
		if err != nil {
			return nil, err
		}
		for _, warning := range config.ValidateAndFixConfig(cfg) {
			logger.Debug("Configuration adjusted", "detail", warning)
		}

		downloader = transport.NewDownloader(
			transport.WithLogger(logger),
			transport.WithUserAgent(cfg.Extractor.UserAgent),
		)
		if client, err = extractor.New(ctx, cfg.Extractor, downloader, logger); err != nil {
			return nil, fmt.Errorf("create extraction client: %w", err)
		}
	}

	b := bridge.New(media.NewResolver(client, logger), bridge.Options{Workers: 1}, logger, nil)
	return &localRunner{bridge: b}, nil
}

// localRunner resolves in process.
type localRunner struct {
	bridge *bridge.Bridge
}

func (r *localRunner) Run(ctx context.Context, op string, args map[string]any) (any, error) {
	outcome, err := r.bridge.Call(ctx, op, args)
	switch {
	case err != nil:
		return nil, err
	case outcome.NotImplemented:
		return nil, fmt.Errorf("%s: %w", op, models.ErrUnsupportedOperation)
	case outcome.Err != nil:
		return nil, outcome.Err
	default:
		return outcome.Value, nil
	}
}

func (r *localRunner) Close(ctx context.Context) {
	_ = r.bridge.Shutdown(ctx)
}

// remoteRunner calls a running gateway over JSON-RPC.
type remoteRunner struct {
	client *jsonrpc.Client
}

func (r *remoteRunner) Run(ctx context.Context, op string, args map[string]any) (any, error) {
	var result json.RawMessage
	if err := r.client.Call(ctx, op, args, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *remoteRunner) Close(context.Context) {
	_ = r.client.Close()
}
