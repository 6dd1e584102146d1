package main

import (
	"github.com/spf13/cobra"

	"github.com/walletchat/walletchat/webserver"
)

var rootCmd = &cobra.Command{
	Use:   "walletchat",
	Short: "A chat assistant web backend",
}

func main() {
	rootCmd.AddCommand(webserver.NewServeCmd())
	cobra.CheckErr(rootCmd.Execute())
}
