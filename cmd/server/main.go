package main // Entry point package

import (
    "log"
    "os"

    "github.com/joho/godotenv"
    "github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
    Use:          "ballpark <command>",
    Short:        "Ticket reservation backend for ballpark games",
    SilenceUsage: true,
    PersistentPreRun: func(cmd *cobra.Command, args []string) {
        // A missing .env is fine; the environment may already be set.
        if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
            log.Printf("env: %v", err)
        }
    },
}

func init() {
    rootCmd.AddCommand(serveCmd)
    rootCmd.AddCommand(migrateCmd)
    rootCmd.AddCommand(tokenCmd)
}

func main() {
    if err := rootCmd.Execute(); err != nil {
        os.Exit(1)
    }
}
