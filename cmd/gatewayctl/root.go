package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"norelock.dev/listenify/gateway/internal/utils"
)

// Flag keys, also readable from GATEWAYCTL_* environment variables
const (
	keyConfig  = "config"
	keyOffline = "offline"
	keyRemote  = "remote"
	keyTimeout = "timeout"
	keyVerbose = "verbose"
)

// newRootCmd builds the command tree. A fresh tree per call keeps flag state
// out of package globals.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("GATEWAYCTL")
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "gatewayctl",
		Short:         "Search, resolve streams and list channels through the media gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringP(keyConfig, "c", "", "Path to the gateway config file (default: search ./configs)")
	flags.Bool(keyOffline, false, "Answer from built-in demo data without touching the network")
	flags.StringP(keyRemote, "r", "", "Base URL of a running gateway, e.g. http://localhost:8080")
	flags.Duration(keyTimeout, 90*time.Second, "Give up waiting for an answer after this long")
	flags.BoolP(keyVerbose, "v", false, "Log debug output to stderr")
	lo.Must0(v.BindPFlags(flags))
	root.MarkFlagsMutuallyExclusive(keyOffline, keyRemote)

	root.AddCommand(
		newSearchCmd(v),
		newStreamCmd(v),
		newChannelCmd(v),
	)

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w\n\n%s", err, cmd.UsageString())
	})

	return root
}

// execute runs op through the runner selected by the flags and prints the
// result as indented JSON.
func execute(cmd *cobra.Command, v *viper.Viper, op string, args map[string]any) error {
	logger := newCLILogger(v.GetBool(keyVerbose))
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), v.GetDuration(keyTimeout))
	defer cancel()

	r, err := newRunner(ctx, v, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second)
		defer closeCancel()
		r.Close(closeCtx)
	}()

	value, err := r.Run(ctx, op, args)
	if err != nil {
		cmd.PrintErrln("Error:", err)
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

// newCLILogger writes to stderr so stdout stays valid JSON.
func newCLILogger(verbose bool) *utils.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	logger := utils.NewLogger(utils.LoggerOptions{
		Development:      true,
		Level:            level,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
	utils.SetLogger(logger)
	return logger
}

// rpcEndpoint derives the /rpc URL from a gateway base URL.
func rpcEndpoint(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/rpc") {
		return base
	}
	return base + "/rpc"
}
