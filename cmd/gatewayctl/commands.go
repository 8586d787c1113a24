package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"norelock.dev/listenify/gateway/internal/bridge"
)

func newSearchCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "search <query>...",
		Short:   "Search for tracks",
		Example: "  gatewayctl search daft punk",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, v, bridge.OpSearch, map[string]any{
				"query": strings.Join(args, " "),
			})
		},
	}
}

func newStreamCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "stream <video-id>",
		Short:   "Resolve the best audio stream URL of a video",
		Example: "  gatewayctl stream dQw4w9WgXcQ",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, v, bridge.OpGetStreamURL, map[string]any{"id": args[0]})
		},
	}
}

func newChannelCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "channel <channel-url>",
		Short:   "List the videos of a channel",
		Example: "  gatewayctl channel https://www.youtube.com/c/Artist",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, v, bridge.OpGetChannelVideos, map[string]any{"channelUrl": args[0]})
		},
	}
}
