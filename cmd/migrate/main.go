package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"survey-api/internal/repository"
	"survey-api/pkg/database"
)

var (
	databaseURL string
	mongoURI    string
	mongoDB     string
	confirmDrop bool
	timeout     time.Duration
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the survey-api storage schema",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "time limit for the whole command")

	rootCmd.AddCommand(upCmd())
	rootCmd.AddCommand(dropCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(mongoIndexesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Create the survey table, constraints and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPostgres(cmd.Context(), func(ctx context.Context, conn *pgx.Conn) error {
				if _, err := conn.Exec(ctx, repository.PostgresSchema); err != nil {
					return fmt.Errorf("failed to create tables: %w", err)
				}
				fmt.Println("✅ Survey tables created successfully")
				return nil
			})
		},
	}
}

func dropCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop the survey table and every stored response",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmDrop {
				return fmt.Errorf("refusing to drop %s without --yes", repository.SurveyTable)
			}
			return withPostgres(cmd.Context(), func(ctx context.Context, conn *pgx.Conn) error {
				if _, err := conn.Exec(ctx, repository.PostgresDropSchema); err != nil {
					return fmt.Errorf("failed to drop tables: %w", err)
				}
				fmt.Println("✅ Survey tables dropped successfully")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&confirmDrop, "yes", false, "confirm dropping all survey data")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stored responses and pending notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPostgres(cmd.Context(), func(ctx context.Context, conn *pgx.Conn) error {
				var total, pending int64
				err := conn.QueryRow(ctx, `
					SELECT COUNT(*), COUNT(*) FILTER (WHERE notification_sent_at IS NULL)
					FROM `+repository.SurveyTable).Scan(&total, &pending)
				if err != nil {
					return fmt.Errorf("failed to read survey status: %w", err)
				}
				fmt.Printf("responses: %d\npending notifications: %d\n", total, pending)
				return nil
			})
		},
	}
}

func mongoIndexesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mongo-indexes",
		Short: "Create the unique indexes of the MongoDB survey collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			if mongoURI == "" {
				return fmt.Errorf("MONGO_URI is not set")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			db, err := database.NewMongoDB(ctx, mongoURI, mongoDB, timeout)
			if err != nil {
				return err
			}
			defer db.Close(context.Background())

			if err := repository.NewMongoSurveyRepository(db.Database, nil).EnsureIndexes(ctx); err != nil {
				return err
			}
			fmt.Printf("✅ Indexes ensured on %s.%s\n", mongoDB, repository.SurveyTable)
			return nil
		},
	}
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", os.Getenv("MONGO_URI"), "MongoDB connection URI")
	cmd.Flags().StringVar(&mongoDB, "mongo-db", envOr("MONGO_DB", "survey"), "MongoDB database name")
	return cmd
}

// withPostgres opens a single connection for the duration of fn
func withPostgres(parent context.Context, fn func(ctx context.Context, conn *pgx.Conn) error) error {
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close(context.Background())

	return fn(ctx, conn)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
