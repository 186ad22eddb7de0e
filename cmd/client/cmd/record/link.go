package record

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"hypercase/cmd/client/cmd/types"
)

var LinkCmd = &cobra.Command{
	Use:   "link <recording-id> <request-id>",
	Short: "Закрыть запрос уже загруженной записью",
	Long:  `Повтор привязки, если запись загрузилась, а запрос закрыть не удалось.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		recordingID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("некорректный id записи: %s", args[0])
		}
		requestID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("некорректный id запроса: %s", args[1])
		}

		if err := app.LinkRequest(cmd.Context(), recordingID, requestID); err != nil {
			return err
		}

		fmt.Printf("✓ Запрос %d выполнен записью %d\n", requestID, recordingID)
		return nil
	},
}
