package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cognivault-dev/cognivault-ledger/pkg/schema"
)

var submitOwner string

var submitCmd = &cobra.Command{
	Use:   "submit <category> <score>",
	Short: "Submit a new training record",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		category, err := schema.ParseCategory(args[0])
		if err != nil {
			fatal("invalid category", err)
		}
		score, err := strconv.Atoi(args[1])
		if err != nil {
			fatal("invalid score", err)
		}

		rs, closeFn, err := openRecordStore()
		if err != nil {
			fatal("failed to open store", err)
		}
		defer closeFn()

		record, err := rs.Submit(submitOwner, category, score)
		if err != nil {
			// The record may have landed even though the index append
			// failed; show it so the id is not lost.
			if record != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
				printJSON(record)
				os.Exit(1)
			}
			fatal("submit failed", err)
		}
		printJSON(record)
	},
}

var errNoOwner = errors.New("owner address required (--owner)")

func init() {
	submitCmd.Flags().StringVar(&submitOwner, "owner", "", "account address owning the record")
	submitCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if submitOwner == "" {
			return errNoOwner
		}
		return nil
	}
	rootCmd.AddCommand(submitCmd)
}
