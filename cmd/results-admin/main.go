package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/dto"
	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/internal/repository"
	"github.com/noah-isme/sma-results-api/internal/service"
	"github.com/noah-isme/sma-results-api/migrations"
	"github.com/noah-isme/sma-results-api/pkg/cache"
	"github.com/noah-isme/sma-results-api/pkg/config"
	"github.com/noah-isme/sma-results-api/pkg/database"
	"github.com/noah-isme/sma-results-api/pkg/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "results-admin",
		Short:         "Operational tasks for the results service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(migrateCmd(), resetTermCmd(), tokenCmd(), flushRosterCacheCmd())
	return root
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|redo|version]",
		Short:     "Run schema migrations",
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: []string{"up", "down", "status", "redo", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := database.NewPostgres(cfg.Database)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer db.Close() //nolint:errcheck
			return database.Migrate(cmd.Context(), db, migrations.FS, args[0], args[1:]...)
		},
	}
}

func resetTermCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-term",
		Short: "Delete every result of a student for a term",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			schoolID, _ := f.GetString("school")
			studentID, _ := f.GetString("student")
			term, _ := f.GetString("term")
			actor, _ := f.GetString("actor")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logr.Sync() //nolint:errcheck

			db, err := database.NewPostgres(cfg.Database)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer db.Close() //nolint:errcheck

			roster := service.NewRosterService(repository.NewTeacherAssignmentRepository(db), nil, 0, logr)
			results := service.NewResultService(repository.NewResultRepository(db), repository.NewStudentRepository(db), roster, nil, nil, logr)
			rc := models.RequestContext{TeacherID: actor, SchoolID: schoolID, Role: models.RoleAdmin}
			outcome, err := results.DeleteStudentTerm(cmd.Context(), rc, dto.DeleteStudentResultsRequest{StudentID: studentID, Term: term})
			if err != nil {
				return err
			}
			logr.Info("student term reset", zap.String("school_id", schoolID), zap.String("student_id", studentID), zap.Int64("deleted", outcome.Deleted))
			fmt.Fprintln(cmd.OutOrStdout(), outcome.Message)
			return nil
		},
	}
	f := cmd.Flags()
	f.String("school", "", "School ID (required)")
	f.String("student", "", "Student ID (required)")
	f.String("term", "", "Term label, aliases such as \"first term\" are accepted (required)")
	f.String("actor", "results-admin", "Actor recorded for the operation")
	_ = cmd.MarkFlagRequired("school")
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("term")
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			userID, _ := f.GetString("user")
			schoolID, _ := f.GetString("school")
			role, _ := f.GetString("role")
			name, _ := f.GetString("name")
			ttl, _ := f.GetDuration("ttl")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Env == config.EnvProduction {
				return fmt.Errorf("token issuing is disabled in production")
			}
			tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Expiry: cfg.JWT.Expiration})
			signed, expiresAt, err := tokens.IssueToken(userID, schoolID, models.UserRole(role), name, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	f := cmd.Flags()
	f.String("user", "", "Teacher or admin ID (required)")
	f.String("school", "", "School ID (required)")
	f.String("role", string(models.RoleTeacher), "Role claim (TEACHER, ADMIN)")
	f.String("name", "", "Display name")
	f.Duration("ttl", 0, "Token lifetime, defaults to JWT_EXPIRATION")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("school")
	return cmd
}

func flushRosterCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flush-roster-cache",
		Short: "Drop cached subject assignments for a school",
		RunE: func(cmd *cobra.Command, args []string) error {
			schoolID, _ := cmd.Flags().GetString("school")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			client, err := cache.NewRedis(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			defer client.Close() //nolint:errcheck

			cacheSvc := service.NewCacheService(repository.NewCacheRepository(client, "results-api"), nil, cfg.Roster.CacheTTL, nil, true)
			roster := service.NewRosterService(nil, cacheSvc, cfg.Roster.CacheTTL, nil)
			if err := roster.InvalidateSchool(ctx, schoolID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "roster cache cleared for school %s\n", schoolID)
			return nil
		},
	}
	cmd.Flags().String("school", "", "School ID (required)")
	_ = cmd.MarkFlagRequired("school")
	return cmd
}
