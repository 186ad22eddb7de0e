package record

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"hypercase/cmd/client/cmd/types"
	"hypercase/internal/app/client"
	"hypercase/internal/domain/recording"
)

var (
	listPatient string
	listLimit   int
)

// RecordingsCmd - родительская команда для списка записей и привязки запросов
var RecordingsCmd = &cobra.Command{
	Use:   "recordings",
	Short: "Загруженные записи",
}

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Показать загруженные записи",
	Long: `Локальная история загрузок и, если указан пациент, записи с сервера.

Без сети показывается только локальная история.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		term := client.NewTerminal(os.Stdin, os.Stdout)

		listing, err := app.Recordings(cmd.Context(), recording.ParsePatientRef(listPatient), listLimit)
		if err != nil {
			return fmt.Errorf("ошибка чтения истории: %w", err)
		}

		term.Info("=== Загружено с этого устройства ===")
		if len(listing.Local) == 0 {
			term.Muted("пусто")
		}
		for _, u := range listing.Local {
			line := fmt.Sprintf("#%-6d %-30s %5ds  %s", u.RecordingID, u.Title, u.DurationSeconds,
				u.CreatedAt.Local().Format(time.DateTime))
			if u.PendingLink() {
				line += fmt.Sprintf("  запрос %d не закрыт", *u.RequestID)
			}
			term.Info("%s", line)
		}

		if listing.RemoteErr != nil {
			fmt.Println()
			title, message := recording.AlertFor(listing.RemoteErr)
			term.Alert(title, message)
			return nil
		}
		if listing.Remote == nil {
			return nil
		}

		fmt.Println()
		term.Info("=== На сервере ===")
		if len(listing.Remote) == 0 {
			term.Muted("пусто")
		}
		for _, r := range listing.Remote {
			term.Info("#%-6d %-30s %6.1fs  %s", r.ID, r.Title, r.DurationSeconds,
				r.CreatedAt.Local().Format(time.DateTime))
		}

		return nil
	},
}

func init() {
	ListCmd.Flags().StringVarP(&listPatient, "patient", "p", "", "пациент: id или JSON")
	ListCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "сколько записей истории показать")
}
