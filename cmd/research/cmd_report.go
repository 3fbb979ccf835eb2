package main

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"insight/backend/internal/app"
	"insight/backend/internal/research"
)

var reportFlags struct {
	question string
	output   string
}

var reportCmd = &cobra.Command{
	Use:   "report --question Q file.pdf [file.pdf...]",
	Short: "Synthesize a research report from local PDFs",
	RunE:  runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVarP(&reportFlags.question, "question", "q", "", "Research question (required)")
	f.StringVarP(&reportFlags.output, "output", "o", "json", "Output format: json or yaml")
	_ = reportCmd.MarkFlagRequired("question")
}

type reportOutput struct {
	ID           string    `json:"id" yaml:"id"`
	Question     string    `json:"question" yaml:"question"`
	KeyTakeaways []string  `json:"keyTakeaways" yaml:"keyTakeaways"`
	Summary      string    `json:"summary" yaml:"summary"`
	Sources      []string  `json:"sources" yaml:"sources"`
	CreatedAt    time.Time `json:"createdAt" yaml:"createdAt"`
}

func runReport(cmd *cobra.Command, args []string) error {
	if err := checkOutputFormat(reportFlags.output); err != nil {
		return err
	}
	ctx := cmd.Context()
	services, err := app.New(ctx, cfg, nil)
	if err != nil {
		return err
	}

	if err := services.Limits.ValidateQuestion(reportFlags.question); err != nil {
		return err
	}
	documents, err := loadDocuments(args)
	if err != nil {
		return err
	}
	if err := services.Limits.ValidateDocuments(documents); err != nil {
		return err
	}

	report, err := services.Synthesizer.Synthesize(ctx, reportFlags.question, documents)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), reportFlags.output, reportOutput{
		ID:           uuid.NewString(),
		Question:     reportFlags.question,
		KeyTakeaways: report.KeyTakeaways,
		Summary:      report.Summary,
		Sources:      report.Sources,
		CreatedAt:    time.Now().UTC(),
	})
}

func loadDocuments(paths []string) ([]research.DocumentInput, error) {
	documents := make([]research.DocumentInput, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		documents = append(documents, research.DocumentInput{
			Filename:  filepath.Base(path),
			MediaType: mediaTypeForFile(path, data),
			Data:      data,
		})
	}
	return documents, nil
}

func mediaTypeForFile(path string, data []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		return byExt
	}
	return http.DetectContentType(data[:min(len(data), 512)])
}
