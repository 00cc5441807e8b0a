// Command zkvmnoded is the node's minimal external entrypoint (spec
// §6 "CLI surface"): run, config, help. Command wiring follows the
// teacher's own use of github.com/spf13/cobra (test/testUtil/compose/
// runner.AddRunCommand), adapted here as the top-level command tree
// rather than a test-only helper.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloakchain/zkvmnode/config"
	"github.com/cloakchain/zkvmnode/mempool"
	"github.com/cloakchain/zkvmnode/state"
	"github.com/cloakchain/zkvmnode/ulogger"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "zkvmnoded",
		Short: "Confidential-asset blockchain node",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file (defaults built in if omitted)")

	root.AddCommand(runCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadSettings() (config.Settings, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the node until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			log := ulogger.New("zkvmnoded", ulogger.LogLevelInfo, os.Stderr)
			log.Infof("starting with blockchain.state_path=%s wallet.store_path=%s",
				settings.Blockchain.StatePath, settings.Wallet.StorePath)

			st, _ := state.MakeInitial(uint64(time.Now().UnixMilli()), nil)
			mp := mempool.New(st, uint64(time.Now().UnixMilli()), log.New("mempool"))
			if settings.Blockchain.MempoolMaxSize > 0 {
				mp.SetMaxEntries(settings.Blockchain.MempoolMaxSize)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			log.Infof("node running (p2p/api listeners are external collaborators, not started here)")
			<-ctx.Done()
			log.Infof("shutting down")
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			fmt.Print(settings.String())
			return nil
		},
	}
}
