package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"github.com/uno-framework/uno/migrate"
)

var (
	migrateDir string
	migrateDSN string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run SQL migrations",
}

func newRunner() (*migrate.Runner, *sql.DB, error) {
	db, err := sql.Open("postgres", migrateDSN)
	if err != nil {
		return nil, nil, err
	}
	runner, err := migrate.NewRunner(db, os.DirFS(migrateDir))
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return runner, db, nil
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, db, err := newRunner()
		if err != nil {
			return err
		}
		defer db.Close()
		return runner.Up(cmd.Context())
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, db, err := newRunner()
		if err != nil {
			return err
		}
		defer db.Close()
		return runner.Down(cmd.Context())
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, db, err := newRunner()
		if err != nil {
			return err
		}
		defer db.Close()
		entries, err := runner.Status(cmd.Context())
		if err != nil {
			return err
		}
		for _, e := range entries {
			state := "pending"
			if e.Applied {
				state = "applied"
			}
			fmt.Printf("%04d  %-30s %s\n", e.Version, e.Name, state)
		}
		return nil
	},
}

func init() {
	migrateCmd.PersistentFlags().StringVar(&migrateDir, "dir", "./migrations", "migration directory")
	migrateCmd.PersistentFlags().StringVar(&migrateDSN, "dsn", "", "postgres connection string")
	migrateCmd.MarkPersistentFlagRequired("dsn")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}
