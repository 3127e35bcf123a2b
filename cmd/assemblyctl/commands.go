package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"assembly/contexts/governance/agenda-voting/domain/entities"
	"assembly/internal/app/bootstrap"
	"assembly/internal/platform/config"

	"github.com/spf13/cobra"
)

func init() {
	agendasCmd.Flags().StringVar(&statusFilter, "status", "", "comma-separated statuses to include")
	rootCmd.AddCommand(migrateCmd, sweepCmd, agendasCmd, relayCmd)
}

var statusFilter string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the postgres schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRuntime(cmd, func(runtime *bootstrap.Runtime) error {
			if runtime.Repository == nil {
				return fmt.Errorf("migrate needs STORAGE=%s", config.StoragePostgres)
			}
			if err := runtime.Repository.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		})
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Finalize agendas whose voting session has elapsed",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRuntime(cmd, func(runtime *bootstrap.Runtime) error {
			report, err := runtime.Module.Workers.ExpirySweeper.ProcessExpiredSessions(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		})
	},
}

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Publish one batch of pending agenda events",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRuntime(cmd, func(runtime *bootstrap.Runtime) error {
			return runtime.Module.Workers.OutboxRelay.RunOnce(cmd.Context())
		})
	},
}

var agendasCmd = &cobra.Command{
	Use:   "agendas",
	Short: "List agendas, optionally filtered by status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var statuses []entities.AgendaStatus
		for _, raw := range strings.Split(statusFilter, ",") {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			status, ok := entities.ParseAgendaStatus(raw)
			if !ok {
				return fmt.Errorf("unknown status %q", raw)
			}
			statuses = append(statuses, status)
		}
		return withRuntime(cmd, func(runtime *bootstrap.Runtime) error {
			agendas, err := runtime.Module.Queries.ListAgendas(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			return printJSON(cmd, agendas)
		})
	},
}

func printJSON(cmd *cobra.Command, value any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
