package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cognivault-dev/cognivault-ledger/pkg/sdk"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Raw access to the ledger's key/value surface",
}

var dataGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Read raw bytes stored under a key",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, closeFn, err := openStore()
		if err != nil {
			fatal("failed to open store", err)
		}
		defer closeFn()

		val, err := store.GetData(args[0])
		if err != nil {
			fatal("get failed", err)
		}
		os.Stdout.Write(val)
		fmt.Println()
	},
}

var dataSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write raw bytes under a key",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		store, closeFn, err := openStore()
		if err != nil {
			fatal("failed to open store", err)
		}
		defer closeFn()

		if err := store.SetData(args[0], []byte(args[1])); err != nil {
			fatal("set failed", err)
		}
		fmt.Println("OK")
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every key in the ledger",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		store, closeFn, err := openStore()
		if err != nil {
			fatal("failed to open store", err)
		}
		defer closeFn()

		keys, err := store.Keys()
		if err != nil {
			fatal("keys failed", err)
		}
		printJSON(keys)
	},
}

var availableCmd = &cobra.Command{
	Use:   "available",
	Short: "Probe whether the storage surface is reachable",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		store, closeFn, err := openStore()
		if err != nil {
			fatal("failed to open store", err)
		}
		defer closeFn()

		fmt.Println(store.IsAvailable())
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check round-trip liveness of the daemon connection",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if addr == "" {
			fatal("ping requires a daemon address", fmt.Errorf("--addr not set"))
		}
		client, err := sdk.Connect(addr)
		if err != nil {
			fatal("failed to connect", err)
		}
		defer client.Close()

		if err := client.Ping(); err != nil {
			fatal("ping failed", err)
		}
		fmt.Println("PONG")
	},
}

func init() {
	dataCmd.AddCommand(dataGetCmd)
	dataCmd.AddCommand(dataSetCmd)
	rootCmd.AddCommand(dataCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(availableCmd)
	rootCmd.AddCommand(pingCmd)
}
