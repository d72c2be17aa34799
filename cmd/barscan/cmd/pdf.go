package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/barscan/internal/pdf"
	"github.com/MeKo-Tech/barscan/internal/reader"
)

// pdfCmd represents the pdf command.
var pdfCmd = &cobra.Command{
	Use:   "pdf [files...]",
	Short: "Decode barcodes in images embedded in PDF files",
	Long: `Extract the images embedded in PDF documents and decode the barcodes
in each of them.

Pages can be limited with --pages using single pages and ranges, e.g.
"1-3,7". Encrypted documents are opened with --password or
--owner-password, or interactively with --prompt-password.

Examples:
  barscan pdf shipment.pdf
  barscan pdf shipment.pdf --pages 1-3 --format json
  barscan pdf locked.pdf --password secret`,
	Args: cobra.ArbitraryArgs,
	RunE: runPDF,
}

func runPDF(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("no PDF files provided")
	}
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	rd, err := newReader(cmd, cfg)
	if err != nil {
		return err
	}

	pages := cfg.PDF.Pages
	if cmd.Flags().Changed("pages") {
		pages, _ = cmd.Flags().GetString("pages")
	}
	procCfg := cfg.ToProcessorConfig()
	if cmd.Flags().Changed("pdf-workers") {
		procCfg.MaxWorkers, _ = cmd.Flags().GetInt("pdf-workers")
	}
	if cmd.Flags().Changed("prompt-password") {
		procCfg.AllowPasswordPrompt, _ = cmd.Flags().GetBool("prompt-password")
	}

	creds := cfg.PDFCredentials()
	if cmd.Flags().Changed("password") || cmd.Flags().Changed("owner-password") {
		creds = &pdf.PasswordCredentials{}
		creds.UserPassword, _ = cmd.Flags().GetString("password")
		creds.OwnerPassword, _ = cmd.Flags().GetString("owner-password")
	}

	proc := pdf.NewProcessorWithConfig(rd, procCfg)
	proc.PasswordHandler().SetPromptIO(cmd.InOrStdin(), cmd.ErrOrStderr())

	ctx, cancel := commandContext(cmd)
	defer cancel()

	docs, err := proc.ProcessFilesWithCredentials(ctx, args, pages, creds)
	if err != nil {
		return err
	}

	out, err := formatDocuments(docs, cfg.Output.Format)
	if err != nil {
		return err
	}
	return writeOutput(cmd, out, cfg.Output.File)
}

type documentsDoc struct {
	Documents []*pdf.DocumentResult `json:"documents" yaml:"documents"`
}

// formatDocuments renders whole documents for json and yaml, and one entry
// per extracted image for csv and text.
func formatDocuments(docs []*pdf.DocumentResult, format string) (string, error) {
	switch format {
	case reader.OutputJSON:
		bts, err := json.MarshalIndent(documentsDoc{Documents: docs}, "", "  ")
		if err != nil {
			return "", err
		}
		return string(bts) + "\n", nil
	case reader.OutputYAML:
		bts, err := yaml.Marshal(documentsDoc{Documents: docs})
		return string(bts), err
	case reader.OutputCSV, reader.OutputText, "":
		var images []*reader.ImageResult
		for _, d := range docs {
			images = append(images, d.ImageResults()...)
		}
		if len(images) == 0 && format != reader.OutputCSV {
			return "no images found\n", nil
		}
		return reader.FormatResults(images, format)
	default:
		return "", fmt.Errorf("unsupported output format %q (want one of %s)", format, strings.Join(reader.OutputFormats, ", "))
	}
}

func init() {
	rootCmd.AddCommand(pdfCmd)
	pdfCmd.Flags().String("pages", "", "page range, e.g. 1-3,7 (default: all pages)")
	pdfCmd.Flags().String("password", "", "user password for encrypted PDFs")
	pdfCmd.Flags().String("owner-password", "", "owner password for encrypted PDFs")
	pdfCmd.Flags().Bool("prompt-password", false, "ask for a password when the given ones fail")
	pdfCmd.Flags().Int("pdf-workers", 0, "pages processed in parallel (0 = number of CPUs)")
	addReaderFlags(pdfCmd)
}
