package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bdougie/catalog/internal/visualcode"
)

var (
	codePrefix string
	codeDigits string
	codeCount  int
)

var codeCmd = &cobra.Command{
	Use:   "code",
	Short: "Generate, check and repair printable container codes",
}

var codeGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print new visual codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := codePrefix
		if prefix == "" {
			prefix = cfg.CodePrefix
		}
		if codeDigits != "" && codeCount > 1 {
			return fmt.Errorf("--digits produces a single code; drop --count")
		}
		for i := 0; i < codeCount; i++ {
			code, err := visualcode.Generate(prefix, codeDigits)
			if err != nil {
				return err
			}
			fmt.Println(code)
		}
		return nil
	},
}

var codeValidateCmd = &cobra.Command{
	Use:   "validate <code>...",
	Short: "Check codes against their checksum",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		invalid := 0
		for _, code := range args {
			if visualcode.Validate(code) {
				fmt.Printf("%s\tvalid\n", code)
				continue
			}
			invalid++
			fmt.Printf("%s\tinvalid\n", code)
		}
		if invalid > 0 {
			return fmt.Errorf("%d invalid code(s)", invalid)
		}
		return nil
	},
}

var codeCorrectCmd = &cobra.Command{
	Use:   "correct <code>...",
	Short: "Repair codes misread by OCR",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, code := range args {
			corrected, ok := visualcode.Correct(code)
			if !ok {
				logger.Warn("cannot correct code", "code", code)
				continue
			}
			fmt.Printf("%s\t%s\n", code, corrected)
		}
		return nil
	},
}

var codeFindCmd = &cobra.Command{
	Use:   "find [text]...",
	Short: "Find codes in text (reads stdin when no text is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if len(args) == 0 {
			b, err := readAll(cmd)
			if err != nil {
				return err
			}
			text = b
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(visualcode.FindInText(text))
	},
}

func readAll(cmd *cobra.Command) (string, error) {
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(b), nil
}

func init() {
	codeGenerateCmd.Flags().StringVar(&codePrefix, "prefix", "", "Two-letter prefix (default CODE_PREFIX)")
	codeGenerateCmd.Flags().StringVar(&codeDigits, "digits", "", "Four body characters; random when empty")
	codeGenerateCmd.Flags().IntVarP(&codeCount, "count", "n", 1, "Number of codes to print")

	codeCmd.AddCommand(codeGenerateCmd, codeValidateCmd, codeCorrectCmd, codeFindCmd)
	rootCmd.AddCommand(codeCmd)
}
