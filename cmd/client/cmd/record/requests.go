package record

import (
	"os"

	"github.com/spf13/cobra"

	"hypercase/cmd/client/cmd/types"
	"hypercase/internal/app/client"
	"hypercase/internal/domain/recording"
)

var requestsPatient string

// RequestsCmd - родительская команда для запросов провайдера
var RequestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Запросы провайдера на запись",
}

var RequestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Невыполненные запросы пациента",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		term := client.NewTerminal(os.Stdin, os.Stdout)

		patient := recording.ParsePatientRef(requestsPatient)
		requests, err := app.PendingRequests(cmd.Context(), patient)
		if err != nil {
			return err
		}

		if len(requests) == 0 {
			term.Muted("Невыполненных запросов нет")
			return nil
		}
		for _, r := range requests {
			term.Info("#%-6d %s", r.ID, r.Title)
			if r.Description != "" {
				term.Muted("        %s", r.Description)
			}
		}
		term.Muted("Записать по запросу: hypercase record --patient %s --request <id>", patient.ID)

		return nil
	},
}

func init() {
	RequestsListCmd.Flags().StringVarP(&requestsPatient, "patient", "p", "", "пациент: id или JSON")
	_ = RequestsListCmd.MarkFlagRequired("patient")
}
