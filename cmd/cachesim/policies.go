package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cachelab/cachesim/policy"
)

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "List the registered eviction policies",
	RunE:  runPolicies,
}

func init() {
	rootCmd.AddCommand(policiesCmd)
}

func runPolicies(cmd *cobra.Command, args []string) error {
	for _, name := range policy.Names() {
		fmt.Println(name)
	}
	return nil
}
