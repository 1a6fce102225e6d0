package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/event-roster/internal/application"
	"github.com/example/event-roster/internal/config"
	"github.com/example/event-roster/internal/logging"
	"github.com/example/event-roster/internal/tabular"
)

const exportSheet = "Registered Users"

func newHashKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key [key]",
		Short: "Print the argon2id hash of an admin key for ROSTER_ADMIN_KEY_HASH",
		Long:  "Print the argon2id hash of an admin key. The key is read from stdin when no argument is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no admin key given")
				}
				key = strings.TrimSpace(line)
			}

			encoded, err := application.HashAdminKey(key, application.DefaultArgon2idParams)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return nil
		},
	}
}

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Load a member workbook into the user directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadTooling()
			if err != nil {
				return err
			}
			logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel)
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			grid, lines, err := tabular.ReadWorkbookLines(f)
			if err != nil {
				return err
			}
			rows := make([]application.Row, 0, len(grid))
			for _, values := range grid {
				rows = append(rows, application.Row(values))
			}

			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			svc := newServices(store, cfg, nil, logger)
			report, err := svc.importer.ImportLines(ctx, rows, lines)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "imported %d of %d rows\n", report.Imported, report.Total)
			for _, failed := range report.Failed {
				fmt.Fprintf(out, "line %d: %s\n", failed.Row, failed.Reason)
			}
			return nil
		},
	}
}

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <eventID> <file.xlsx>",
		Short: "Write the registered users of an event to a workbook",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadTooling()
			if err != nil {
				return err
			}
			logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel)
			ctx := cmd.Context()

			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			svc := newServices(store, cfg, nil, logger)
			rows, err := svc.roster.Export(ctx, args[0])
			if err != nil {
				return err
			}

			values := make([]map[string]any, 0, len(rows))
			for _, row := range rows {
				values = append(values, row.Values())
			}

			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			if err := tabular.WriteWorkbook(f, exportSheet, application.ExportColumns, values); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n", len(rows), args[1])
			return nil
		},
	}
}
