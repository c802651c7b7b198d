package main

import (
	"fmt"

	"callroom/pkg/utils"

	"github.com/spf13/cobra"
)

var codeCmd = &cobra.Command{
	Use:   "code",
	Short: "Print a freshly generated room code",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), utils.GenerateRoomCode())
		return nil
	},
}
