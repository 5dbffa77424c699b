// Command chtl compiles a single CHTL source file to HTML, the thin CLI
// shell wired entirely from pkg/api.Compile.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Yhlight/CHTL-FINAL/internal/chtl_modstore"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_projectcfg"
	"github.com/Yhlight/CHTL-FINAL/pkg/api"
)

var (
	outputPath string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chtl <input.chtl>",
		Short: "Compile a CHTL source file to HTML",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output HTML path (default: input path with .html extension)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	if verbose {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}

func run(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	inputPath := args[0]
	out := outputPath
	if out == "" {
		out = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".html"
	}

	projectCfg, err := chtl_projectcfg.Load(filepath.Dir(inputPath))
	if err != nil {
		logger.Warn("failed to read chtl.toml, using defaults", zap.Error(err))
		projectCfg = chtl_projectcfg.Default()
	}

	store := chtl_modstore.New(projectCfg.ModulePath)
	logger.Info("compiling", zap.String("input", inputPath), zap.String("output", out))

	result, code := api.Compile(cmd.Context(), store, api.CompileOptions{
		InputPath:  inputPath,
		OutputPath: out,
	})

	for _, msg := range result.Diagnostics {
		logger.Warn("diagnostic", zap.String("message", msg.String()))
	}

	if code != 0 {
		return fmt.Errorf("compilation failed with %d diagnostics", len(result.Diagnostics))
	}

	if err := os.WriteFile(out, []byte(result.HTML), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	logger.Info("wrote output", zap.String("path", out))
	return nil
}
