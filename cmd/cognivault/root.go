package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cognivault-dev/cognivault-ledger/pkg/sdk"
)

var (
	addr    string
	dataDir string
	guarded bool
)

var rootCmd = &cobra.Command{
	Use:   "cognivault",
	Short: "Client for the Cognivault training-record ledger",
	Long: `cognivault reads and writes cognitive-training records against a
Cognivault ledger, either a remote daemon (--addr) or an embedded
store persisted under --data-dir.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", os.Getenv("COGNIVAULT_LEDGER_ADDR"),
		"address of the ledger daemon (empty = embedded store)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data",
		"data directory for the embedded store")
	rootCmd.PersistentFlags().BoolVar(&guarded, "guarded", false,
		"use compare-and-swap for index appends")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore connects to the daemon when an address is known, otherwise
// runs the store embedded.
func openStore() (sdk.ChainStore, func(), error) {
	if addr != "" {
		client, err := sdk.Connect(addr)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { client.Close() }, nil
	}

	store, err := sdk.New(dataDir)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {}, nil
}

func openRecordStore() (*sdk.RecordStore, func(), error) {
	store, closeFn, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	var opts []sdk.RecordOption
	if guarded {
		opts = append(opts, sdk.WithGuardedIndex())
	}
	return sdk.NewRecordStore(store, opts...), closeFn, nil
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(data))
}
