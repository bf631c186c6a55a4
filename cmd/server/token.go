package main

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/spf13/cobra"

    "github.com/iliyamo/ballpark-reservation/internal/config"
    "github.com/iliyamo/ballpark-reservation/internal/database"
    "github.com/iliyamo/ballpark-reservation/internal/repository"
    "github.com/iliyamo/ballpark-reservation/internal/utils"
)

var (
    tokenUser   uint64
    tokenRole   string
    tokenVerify bool
)

var tokenCmd = &cobra.Command{
    Use:   "token",
    Short: "Mint a development access token",
    RunE: func(cmd *cobra.Command, args []string) error {
        if tokenUser == 0 {
            return errors.New("--user is required")
        }
        role := tokenRole
        if tokenVerify {
            r, err := lookupRole(cmd.Context(), tokenUser)
            if err != nil {
                return err
            }
            role = r
        }
        cfg := config.LoadAuth()
        tok, err := utils.NewAccessToken(cfg.JWTSecret, tokenUser, role, time.Duration(cfg.AccessTTLMin)*time.Minute)
        if err != nil {
            return err
        }
        fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
        return nil
    },
}

// lookupRole reads the user's role from the users table, refusing inactive accounts.
func lookupRole(ctx context.Context, userID uint64) (string, error) {
    if ctx == nil {
        ctx = context.Background()
    }
    cfg := config.LoadDB()
    db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        return "", err
    }
    defer db.Close()
    u, err := repository.NewUserRepo(db).GetByID(ctx, userID)
    if err != nil {
        return "", fmt.Errorf("user %d: %w", userID, err)
    }
    if !u.IsActive {
        return "", fmt.Errorf("user %d is inactive", userID)
    }
    return u.Role, nil
}

func init() {
    tokenCmd.Flags().Uint64Var(&tokenUser, "user", 0, "user id to put in the sub claim")
    tokenCmd.Flags().StringVar(&tokenRole, "role", "CUSTOMER", "role claim")
    tokenCmd.Flags().BoolVar(&tokenVerify, "verify", false, "look the user up in MySQL and use its stored role")
}
