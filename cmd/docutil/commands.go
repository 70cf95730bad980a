package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aihub/doctools/internal/services"
	"github.com/spf13/cobra"
)

var docx2mdCmd = &cobra.Command{
	Use:   "docx2md <file.docx>",
	Short: "Export a Word document to Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args[0], ".docx")
		if err != nil {
			return err
		}
		md, err := docService.DocxToMarkdown(cmd.Context(), data)
		if err != nil {
			return err
		}
		if stdout, _ := cmd.Flags().GetBool("stdout"); stdout {
			_, err := fmt.Fprint(cmd.OutOrStdout(), md)
			return err
		}
		return writeOutput(outputPath(cmd, args[0], ".md"), []byte(md), args[0])
	},
}

var md2docxCmd = &cobra.Command{
	Use:   "md2docx <file.md> [images...]",
	Short: "Build a Word document from Markdown",
	Long: `md2docx builds a document from the supported Markdown subset: headings
1-3, bullet items, images and plain paragraphs. Extra arguments are image files
that ![alt](name) references can use by file name.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		md, err := readInput(args[0], "")
		if err != nil {
			return err
		}
		images := make(map[string][]byte, len(args)-1)
		for _, path := range args[1:] {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			images[filepath.Base(path)] = data
		}
		out, err := docService.Generate(cmd.Context(), services.GenerateRequest{
			Markdown: string(md),
			Images:   images,
		})
		if err != nil {
			return err
		}
		return writeOutput(outputPath(cmd, args[0], ".docx"), out, args[0])
	},
}

var replaceCmd = &cobra.Command{
	Use:   "replace <file.docx> <search> <replacement>",
	Short: "Replace text inside runs, keeping formatting",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args[0], ".docx")
		if err != nil {
			return err
		}
		out, err := docService.Replace(cmd.Context(), services.ReplaceRequest{
			Data:    data,
			Search:  args[1],
			Replace: args[2],
		})
		if err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("output")
		if path == "" {
			// 与HTTP接口一致，输出为 modified_<name>
			path = filepath.Join(filepath.Dir(args[0]), "modified_"+filepath.Base(args[0]))
		}
		return writeOutput(path, out, args[0])
	},
}

var pdf2docxCmd = &cobra.Command{
	Use:   "pdf2docx <file.pdf>",
	Short: "Convert a PDF to a Word document (text only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args[0], ".pdf")
		if err != nil {
			return err
		}
		out, err := docService.PDFToDocx(cmd.Context(), data)
		if err != nil {
			return err
		}
		return writeOutput(outputPath(cmd, args[0], ".docx"), out, args[0])
	},
}

var docx2pdfCmd = &cobra.Command{
	Use:   "docx2pdf <file.docx>",
	Short: "Convert a Word document to PDF with LibreOffice",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args[0], ".docx")
		if err != nil {
			return err
		}
		out, err := docService.DocxToPDF(cmd.Context(), data)
		if err != nil {
			return err
		}
		return writeOutput(outputPath(cmd, args[0], ".pdf"), out, args[0])
	},
}

var metadataCmd = &cobra.Command{
	Use:   "metadata <file.docx>",
	Short: "Print document properties as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args[0], ".docx")
		if err != nil {
			return err
		}
		meta, err := docService.Metadata(cmd.Context(), data)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of docutil",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "docutil %s\n", version)
	},
}

func init() {
	for _, c := range []*cobra.Command{docx2mdCmd, md2docxCmd, replaceCmd, pdf2docxCmd, docx2pdfCmd} {
		c.Flags().StringP("output", "o", "", "output file (default: input name with the new extension)")
	}
	docx2mdCmd.Flags().Bool("stdout", false, "write Markdown to standard output")

	rootCmd.AddCommand(docx2mdCmd, md2docxCmd, replaceCmd, pdf2docxCmd, docx2pdfCmd, metadataCmd, versionCmd)
}
