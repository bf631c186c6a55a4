package main

import (
    "context"
    "log"

    "github.com/spf13/cobra"

    "github.com/iliyamo/ballpark-reservation/internal/config"
    "github.com/iliyamo/ballpark-reservation/internal/database"
)

var migrateCmd = &cobra.Command{
    Use:   "migrate",
    Short: "Apply pending database migrations and exit",
    RunE: func(cmd *cobra.Command, args []string) error {
        cfg := config.LoadDB()
        db, err := database.Open(context.Background(), cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
        if err != nil {
            return err
        }
        defer db.Close()
        if err := database.Migrate(db); err != nil {
            return err
        }
        log.Printf("migrate: schema up to date")
        return nil
    },
}
