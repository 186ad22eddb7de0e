package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"hypercase/cmd/client/cmd/types"
	"hypercase/internal/app/client"
	"hypercase/internal/app/client/capture"
	"hypercase/internal/app/client/pipeline"
	"hypercase/internal/domain/recording"
)

var (
	patientFlag string
	requestFlag string
	titleFlag   string
)

var RecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Записать и загрузить аудио",
	Long: `Запись с микрофона. Enter останавливает запись, затем запись нужно
назвать, и она загружается на сервер.

--patient принимает id или JSON вида {"id": 12}.
--request закрывает запрос провайдера загруженной записью: id или JSON.
Без --request клиент предложит выбрать один из невыполненных запросов пациента.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		term := client.NewTerminal(os.Stdin, os.Stdout)

		target := pipeline.Target{Patient: recording.ParsePatientRef(patientFlag)}
		target.Request = recording.ParseRequestRef(requestFlag)
		if target.Request == nil && target.Patient.OK {
			target.Request = chooseRequest(ctx, app, term, target.Patient)
		}

		rec, err := app.NewRecorder(client.RecorderOptions{
			Notifier:  term,
			Confirmer: term,
			Navigator: pipeline.NavigatorFunc(func(context.Context) error {
				if target.Patient.OK {
					term.Muted("Список записей: hypercase recordings list --patient %s", target.Patient.ID)
				} else {
					term.Muted("Список записей: hypercase recordings list")
				}
				return nil
			}),
			OnTick: func(elapsed int) {
				fmt.Printf("\r● %s  ", capture.FormatElapsed(elapsed))
			},
		})
		if err != nil {
			return err
		}
		defer rec.Pipeline.Close(context.WithoutCancel(ctx))

		if err := begin(ctx, rec.Pipeline, term); err != nil {
			return err
		}

		if _, err := term.Prompt(ctx, "Идет запись. Enter - остановить\n"); err != nil {
			return err
		}

		staged, err := rec.Pipeline.Finish(ctx)
		if err != nil {
			return types.ErrShown
		}
		if staged == nil {
			term.Info("Запись не велась")
			return nil
		}
		fmt.Println()
		term.Info("Записано %s", capture.FormatElapsed(staged.DurationSeconds))

		res, err := save(ctx, rec.Pipeline, term, target)
		if err != nil {
			return err
		}

		term.Success("✓ Запись %d загружена", res.RecordingID)
		switch {
		case res.Linked:
			term.Success("✓ Запрос %d выполнен", target.Request.ID)
		case res.Partial:
			term.Info("Запрос не закрыт. Повторите: hypercase recordings link %d %d",
				res.RecordingID, target.Request.ID)
		}

		return nil
	},
}

// begin запускает запись; при отказе в доступе к микрофону предлагает повторить.
func begin(ctx context.Context, p *pipeline.Pipeline, term *client.Terminal) error {
	err := p.Begin(ctx)
	for errors.Is(err, recording.ErrPermissionDenied) {
		retry, perr := term.Confirm(ctx, "Повторить запрос доступа?")
		if perr != nil || !retry {
			return types.ErrShown
		}
		err = p.RetryPermission(ctx)
	}
	if err != nil {
		return types.ErrShown
	}
	return nil
}

// save спрашивает имя и загружает запись. После ошибки загрузки запись не теряется:
// можно повторить или отказаться.
func save(ctx context.Context, p *pipeline.Pipeline, term *client.Terminal, target pipeline.Target) (pipeline.Result, error) {
	name := titleFlag
	for {
		if name == "" {
			var err error
			if name, err = term.Prompt(ctx, "Название записи: "); err != nil {
				p.Discard()
				return pipeline.Result{}, err
			}
		}

		res, err := p.Save(ctx, name, target)
		if err == nil {
			return res, nil
		}
		name = ""

		if errors.Is(err, recording.ErrValidation) {
			continue
		}

		retry, cerr := term.Confirm(ctx, "Повторить загрузку?")
		if cerr != nil || !retry {
			p.Discard()
			term.Muted("Запись удалена")
			return pipeline.Result{}, types.ErrShown
		}
	}
}

// chooseRequest показывает невыполненные запросы пациента и дает выбрать один.
func chooseRequest(ctx context.Context, app *client.App, term *client.Terminal, patient recording.PatientRef) *recording.Request {
	requests, err := app.PendingRequests(ctx, patient)
	if err != nil {
		term.Muted("Запросы недоступны: %v", err)
		return nil
	}
	if len(requests) == 0 {
		return nil
	}

	term.Info("Невыполненные запросы:")
	for i, r := range requests {
		term.Info("  %d. %s (#%d)", i+1, r.Title, r.ID)
	}

	answer, err := term.Prompt(ctx, "Номер запроса (Enter - без запроса): ")
	if err != nil || answer == "" {
		return nil
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(requests) {
		term.Muted("Запрос не выбран")
		return nil
	}

	return &requests[n-1]
}

func init() {
	RecordCmd.Flags().StringVarP(&patientFlag, "patient", "p", "", "пациент: id или JSON")
	RecordCmd.Flags().StringVarP(&requestFlag, "request", "r", "", "запрос провайдера: id или JSON")
	RecordCmd.Flags().StringVarP(&titleFlag, "title", "t", "", "название записи")
}
