package cmd

import (
	"github.com/ostafen/ntfstriage/internal/env"
	"github.com/spf13/cobra"
)

func Execute() error {
	rootCmd := &cobra.Command{
		Use:   env.AppName,
		Short: env.AppName + " - NTFS forensic triage tool",
	}

	rootCmd.AddCommand(
		DefineInfoCommand(),
		DefineExtractCommand(),
		DefineParseMftCommand(),
		DefineParseUsnJrnlCommand(),
		DefineParseLogFileCommand(),
		DefineAnalyzeCommand(),
		DefineExtractAnalyzeCommand(),
		DefineMountCommand(),
	)

	return rootCmd.Execute()
}
