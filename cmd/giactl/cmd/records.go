package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyjia/grant-portal/internal/application/port"
	"github.com/garyjia/grant-portal/internal/application/service"
	"github.com/garyjia/grant-portal/internal/domain/entity"
)

// ErrRecordNotListed is returned when no loaded record has the letter number
var ErrRecordNotListed = errors.New("no record with that letter number")

func newRecordsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"r"},
		Short:   "Work with the records of the current site",
	}
	cmd.AddCommand(
		newRecordsListCmd(opts),
		newRecordsStatusCmd(opts),
		newRecordsCommentCmd(opts),
		newRecordsCreateCmd(opts),
		newRecordsExportCmd(opts),
	)
	return cmd
}

func newRecordsListCmd(opts *rootOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List records, optionally by opened date",
		Example: "  giactl records list --from 2024-01-01 --to 2024-03-31",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := opts.app
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if from != "" || to != "" {
				if err := app.Services.Dashboard.ApplyFilter(ctx, app.SessionID, from, to); err != nil {
					return errors.New(service.Message(err))
				}
			}

			view, err := app.Services.Dashboard.View(ctx, app.SessionID)
			if err != nil {
				return err
			}
			if view.LoadError != "" {
				return errors.New(view.LoadError)
			}

			printInfo(out, fmt.Sprintf("Site %s: %d of %d records", view.Site, len(view.Rows), view.Total))
			if len(view.Rows) == 0 {
				return nil
			}

			table := newRecordTable()
			for i, row := range view.Rows {
				table.addRecord(i+1, row.Record)
			}
			fmt.Fprint(out, table.render())
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first opened date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last opened date (YYYY-MM-DD)")
	return cmd
}

func newRecordsStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <letterNo> <status>",
		Short: "Change a record's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := opts.app
			ctx := cmd.Context()

			key, err := findRecord(ctx, app, args[0])
			if err != nil {
				return err
			}
			if err := app.Services.Dashboard.ChangeStatus(ctx, app.SessionID, key, args[1]); err != nil {
				return fmt.Errorf("status not saved: %s", service.Message(err))
			}
			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Status of %s set to %s", args[0], args[1]))
			return nil
		},
	}
}

func newRecordsCommentCmd(opts *rootOptions) *cobra.Command {
	var by, text string

	cmd := &cobra.Command{
		Use:     "comment <letterNo>",
		Short:   "Send a comment on a record",
		Example: `  giactl records comment GIA/2024/17 --by "Dr. Rao" --text "Approved in principle"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := opts.app
			ctx := cmd.Context()

			key, err := findRecord(ctx, app, args[0])
			if err != nil {
				return err
			}
			if err := app.Services.Dashboard.EditComments(ctx, app.SessionID, key, text, by); err != nil {
				return err
			}
			receipt, err := app.Services.Dashboard.SendComment(ctx, app.SessionID, key)
			if err != nil {
				return errors.New(service.Message(err))
			}
			printSuccess(cmd.OutOrStdout(), receipt.Message())
			return nil
		},
	}

	cmd.Flags().StringVar(&by, "by", "", "name the comment is given by")
	cmd.Flags().StringVar(&text, "text", "", "comment text")
	return cmd
}

func newRecordsCreateCmd(opts *rootOptions) *cobra.Command {
	values := make(map[entity.Field]*string, len(entity.Fields()))

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a record from the data entry fields",
		Example: "  giactl records create --letter-no GIA/2024/18 --subject \"Seminar on Optics\" --status \"In Process\" --amount 25000",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := opts.app
			entry := app.Services.Entry

			fields := make(map[string]string, len(values))
			for f, v := range values {
				fields[f.String()] = *v
			}

			entry.Reset(app.SessionID)
			if err := entry.SetFields(app.SessionID, fields); err != nil {
				return err
			}
			if err := entry.Submit(cmd.Context(), app.SessionID); err != nil {
				if service.IsValidation(err) {
					return err
				}
				return errors.New(service.SubmitFailureMessage(err))
			}
			printSuccess(cmd.OutOrStdout(), service.MsgFormSubmitted)
			return nil
		},
	}

	for _, f := range entity.Fields() {
		values[f] = cmd.Flags().String(createFlags[f].name, "", createFlags[f].usage)
	}
	return cmd
}

var createFlags = map[entity.Field]struct{ name, usage string }{
	entity.FieldDateOpened:       {"date-opened", "date of opened (YYYY-MM-DD)"},
	entity.FieldSubject:          {"subject", "subject"},
	entity.FieldLetterNo:         {"letter-no", "letter number"},
	entity.FieldDated:            {"dated", "letter date (YYYY-MM-DD)"},
	entity.FieldCommentsBy:       {"comments-by", "comments given by"},
	entity.FieldComments:         {"comments", "comments"},
	entity.FieldStatus:           {"status", "status"},
	entity.FieldAmountSanctioned: {"amount", "amount sanctioned (in Rs.)"},
}

func newRecordsExportCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export <letterNo>",
		Short: "Render one record as an HTML or XLSX document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := opts.app
			ctx := cmd.Context()

			f, err := port.ParseExportFormat(format)
			if err != nil {
				return fmt.Errorf("%w: %q", err, format)
			}
			key, err := findRecord(ctx, app, args[0])
			if err != nil {
				return err
			}
			res, err := app.Services.Export.ExportAndWait(ctx, app.SessionID, key, f)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Exported %s to %s (%d bytes)", args[0], res.FullPath, res.Size))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", string(port.ExportHTML), "document format: html or xlsx")
	return cmd
}

// findRecord loads the site's records and returns the row key of letterNo
func findRecord(ctx context.Context, app *App, letterNo string) (string, error) {
	view, err := app.Services.Dashboard.View(ctx, app.SessionID)
	if err != nil {
		return "", err
	}
	if view.LoadError != "" {
		return "", errors.New(view.LoadError)
	}
	for _, row := range view.Rows {
		if row.Record.LetterNo == letterNo {
			return row.Key, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrRecordNotListed, letterNo)
}
