package main

import (
	"github.com/spf13/cobra"

	"insight/backend/internal/app"
)

var refreshFlags struct {
	question string
	answer   string
	sources  []string
	output   string
}

var refreshCmd = &cobra.Command{
	Use:   "refresh --question Q --answer A [--source URL...]",
	Short: "Check whether new information changes an existing answer",
	RunE:  runRefresh,
}

func init() {
	f := refreshCmd.Flags()
	f.StringVarP(&refreshFlags.question, "question", "q", "", "Original research question (required)")
	f.StringVarP(&refreshFlags.answer, "answer", "a", "", "Current answer (required)")
	f.StringSliceVarP(&refreshFlags.sources, "source", "s", nil, "Source URL behind the answer (repeatable)")
	f.StringVarP(&refreshFlags.output, "output", "o", "json", "Output format: json or yaml")
	_ = refreshCmd.MarkFlagRequired("question")
	_ = refreshCmd.MarkFlagRequired("answer")
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	if err := checkOutputFormat(refreshFlags.output); err != nil {
		return err
	}
	ctx := cmd.Context()
	services, err := app.New(ctx, cfg, nil)
	if err != nil {
		return err
	}
	if err := services.Limits.ValidateRefresh(refreshFlags.question, refreshFlags.answer); err != nil {
		return err
	}

	result, err := services.Refresher.Refresh(ctx, refreshFlags.question, refreshFlags.answer, refreshFlags.sources)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), refreshFlags.output, struct {
		UpdatedAnswer string `json:"updatedAnswer" yaml:"updatedAnswer"`
		IsUpdated     bool   `json:"isUpdated" yaml:"isUpdated"`
	}{result.UpdatedAnswer, result.IsUpdated})
}
