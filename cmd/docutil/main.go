// Package main docutil命令行，对本地文件执行文档服务的各项操作
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aihub/doctools/app/bootstrap"
	"github.com/aihub/doctools/internal/config"
	"github.com/aihub/doctools/internal/di"
	"github.com/aihub/doctools/internal/logger"
	"github.com/aihub/doctools/internal/services"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version 构建时通过ldflags注入
var version = "dev"

// docService 在PersistentPreRunE中创建
var docService *services.DocumentService

var rootCmd = &cobra.Command{
	Use:   "docutil",
	Short: "Word and PDF utilities",
	Long: `docutil runs the document tools operations on local files: Markdown export
and import, run-preserving search and replace, metadata extraction and
PDF conversion. Configuration is read from the same DOCTOOLS_* environment
variables (and .env file) as the HTTP service.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		_ = godotenv.Load()

		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		level, _ := cmd.Flags().GetString("log-level")
		if err := logger.InitLogger(cfg.Server.Env, level); err != nil {
			return err
		}
		bootstrap.ApplyLicense(cfg.Unidoc.LicenseKey)

		container, err := di.Build(cfg)
		if err != nil {
			return err
		}
		return container.Invoke(func(ds *services.DocumentService) {
			docService = ds
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn or error")
}

// outputPath 未指定输出时使用输入文件名加新扩展名
func outputPath(cmd *cobra.Command, input, ext string) string {
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		return out
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ext
}

func readInput(path, ext string) ([]byte, error) {
	if ext != "" && !strings.HasSuffix(path, ext) {
		return nil, fmt.Errorf("%s: expected a %s file", path, ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

func writeOutput(path string, data []byte, input string) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(os.Stderr, "%s -> %s\n", input, path)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
