package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docqa/src/core/answer"
	"docqa/src/core/docqa"
)

var (
	ingestQuestion string
	ingestMode     string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest documents from disk and optionally ask one question",
	Long: `The ingest command runs the ingestion pipeline over local files and
reports the resulting chunk count. With --question it also answers one
question against the fresh index and prints the answer with its sources.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	settingDefaultConfig()

	ingestCmd.Flags().StringVarP(&ingestQuestion, "question", "q", "", "question to ask after ingestion")
	ingestCmd.Flags().StringVarP(&ingestMode, "mode", "m", string(answer.ModeDocumentOnly), "answer mode: document_only or hybrid")
}

func runIngest(cmd *cobra.Command, args []string) error {
	sess, _, err := buildSession()
	if err != nil {
		return fmt.Errorf("failed to build session: %w", err)
	}

	bar := progressbar.Default(int64(len(args)), "reading files")
	files := make([]docqa.File, 0, len(args))
	for _, path := range args {
		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		format, ok := docqa.ParseFormat(strings.ToLower(ext))
		if !ok {
			return fmt.Errorf("%w: %s", docqa.ErrUnsupportedFormat, path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		files = append(files, docqa.File{Name: filepath.Base(path), Format: format, Data: data})
		bar.Add(1)
	}

	ctx := context.Background()
	result, err := sess.Ingest(ctx, files)
	if err != nil {
		return err
	}

	fmt.Printf("ingested %d chunks from %d files\n", result.ChunkCount, len(files))
	for _, fe := range result.FileErrors {
		fmt.Printf("  skipped %s: %s\n", fe.Name, fe.Err)
	}

	if ingestQuestion == "" {
		return nil
	}

	mode, ok := answer.ParseMode(ingestMode)
	if !ok {
		return fmt.Errorf("unknown mode %q", ingestMode)
	}

	res, err := sess.Ask(ctx, ingestQuestion, mode)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(res.Answer)
	if len(res.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, s := range res.Sources {
			if s.Position != "" {
				fmt.Printf("  - %s (%s)\n", s.Source, s.Position)
			} else {
				fmt.Printf("  - %s\n", s.Source)
			}
		}
	}
	return nil
}
