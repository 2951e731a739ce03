package main

import (
	"github.com/spf13/cobra"
)

var activateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Move a pending record to active",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rs, closeFn, err := openRecordStore()
		if err != nil {
			fatal("failed to open store", err)
		}
		defer closeFn()

		record, err := rs.Activate(args[0])
		if err != nil {
			fatal("activate failed", err)
		}
		printJSON(record)
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Move a pending or active record to completed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rs, closeFn, err := openRecordStore()
		if err != nil {
			fatal("failed to open store", err)
		}
		defer closeFn()

		record, err := rs.Complete(args[0])
		if err != nil {
			fatal("complete failed", err)
		}
		printJSON(record)
	},
}

func init() {
	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(completeCmd)
}
