package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Document question-answering service",
	Long: `docqa ingests PDF, DOCX, and PPTX documents, indexes them for hybrid
lexical and semantic retrieval, and answers questions grounded in their
content.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
