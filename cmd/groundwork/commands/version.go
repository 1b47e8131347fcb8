package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groundwork-sh/groundwork/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the groundwork version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}
