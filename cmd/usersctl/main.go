package main

import (
	"fmt"
	"os"

	"github.com/AnshRaj112/newsdesk-backend/cmd/usersctl/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "usersctl",
		Short: "User administration for the newsdesk backend",
		Long:  "CLI tool for creating administrators and managing user roles",
	}

	open := commands.MongoOpener()
	rootCmd.AddCommand(commands.NewCreateAdminCmd(open))
	rootCmd.AddCommand(commands.NewGrantRoleCmd(open))
	rootCmd.AddCommand(commands.NewRevokeRoleCmd(open))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
