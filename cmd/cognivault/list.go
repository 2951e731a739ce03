package main

import (
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all training records, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		rs, closeFn, err := openRecordStore()
		if err != nil {
			fatal("failed to open store", err)
		}
		defer closeFn()

		records, err := rs.List()
		if err != nil {
			fatal("list failed", err)
		}
		printJSON(records)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch a single training record",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rs, closeFn, err := openRecordStore()
		if err != nil {
			fatal("failed to open store", err)
		}
		defer closeFn()

		record, err := rs.Get(args[0])
		if err != nil {
			fatal("get failed", err)
		}
		printJSON(record)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
}
