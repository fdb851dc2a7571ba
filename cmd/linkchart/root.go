package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/wsmontes/linkchart/internal/config"
	"github.com/wsmontes/linkchart/pkg/canonical"
	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/events"
	"github.com/wsmontes/linkchart/pkg/importer"
	"github.com/wsmontes/linkchart/pkg/loader"
	ioloader "github.com/wsmontes/linkchart/pkg/loader/io"
	"github.com/wsmontes/linkchart/pkg/logger"
	"github.com/wsmontes/linkchart/pkg/reader"
	"github.com/wsmontes/linkchart/pkg/report"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "linkchart",
		Short:        "Canonicalize link-chart data into an entity/link graph",
		SilenceUsage: true,
	}
	root.AddCommand(newCanonicalizeCmd(), newFormatsCmd())
	return root
}

type canonicalizeFlags struct {
	links         string
	format        string
	entitiesSheet string
	linksSheet    string
	delimiter     string
	repairJSON    bool
	config        string
	sourceName    string
	out           string
	withReport    bool
}

type canonicalizeOutput struct {
	Graph  *common.Graph      `json:"graph"`
	Source *common.DataSource `json:"source,omitempty"`
	Report *report.Report     `json:"report,omitempty"`
}

func newCanonicalizeCmd() *cobra.Command {
	f := &canonicalizeFlags{}
	cmd := &cobra.Command{
		Use:   "canonicalize <entities-file>",
		Short: "Read a file and print the canonical graph as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCanonicalize(cmd.Context(), cmd.OutOrStdout(), args[0], f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.links, "links", "", "optional file holding link records")
	flags.StringVar(&f.format, "format", "", "force the input format (json, csv, xlsx, xls, graphml, gexf, cypher)")
	flags.StringVar(&f.entitiesSheet, "entities-sheet", "", "workbook sheet holding entities")
	flags.StringVar(&f.linksSheet, "links-sheet", "", "workbook sheet holding links")
	flags.StringVar(&f.delimiter, "delimiter", "", "field delimiter for delimited text, sniffed when empty")
	flags.BoolVar(&f.repairJSON, "repair-json", false, "repair malformed JSON before parsing")
	flags.StringVar(&f.config, "config", "", "options document (JSON)")
	flags.StringVar(&f.sourceName, "source-name", "", "data source name, defaults to the file name")
	flags.StringVarP(&f.out, "out", "o", "", "write the result to a file instead of stdout")
	flags.BoolVar(&f.withReport, "report", false, "include the validation report and source in the output")
	return cmd
}

func runCanonicalize(ctx context.Context, stdout io.Writer, path string, f *canonicalizeFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	opts := config.Default()
	if f.config != "" {
		var err error
		if opts, err = config.Load(f.config); err != nil {
			return err
		}
	}
	pipeline, err := canonical.New(opts.PipelineConfig())
	if err != nil {
		return err
	}

	readerOpts := reader.Options{
		Format:        reader.Format(f.format),
		EntitiesSheet: f.entitiesSheet,
		LinksSheet:    f.linksSheet,
		RepairJSON:    f.repairJSON,
	}
	if f.delimiter != "" {
		if utf8.RuneCountInString(f.delimiter) != 1 {
			return fmt.Errorf("delimiter must be a single character, got %q", f.delimiter)
		}
		readerOpts.Delimiter, _ = utf8.DecodeRuneInString(f.delimiter)
	}

	l := ioloader.NewIOSourceLoader()
	req := importer.Request{
		Entities:   loader.NewSourceFile(loader.NewSourceFileParams{Path: path, Loader: l}),
		Options:    readerOpts,
		Assignment: opts.Assignment(),
		SourceName: f.sourceName,
	}
	if f.links != "" {
		links := loader.NewSourceFile(loader.NewSourceFileParams{Path: f.links, Loader: l})
		req.Links = &links
	}

	bus := events.NewBus()
	bus.Subscribe(events.TopicImportProgress, func(_ context.Context, payload any) error {
		if pr, ok := payload.(events.Progress); ok {
			logger.Debug("[Import] Progress", "message", pr.Message, "percentage", pr.Percentage)
		}
		return nil
	})
	res, err := importer.New(bus, pipeline).Import(ctx, req)
	if err != nil {
		return err
	}
	for _, msg := range res.Report.Messages() {
		logger.Warn("[Import] " + msg)
	}

	out := canonicalizeOutput{Graph: res.Graph}
	if f.withReport {
		out.Source = res.Source
		out.Report = res.Report
	}

	w := stdout
	if f.out != "" {
		file, err := os.Create(f.out)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the file extensions and the formats they map to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, f := range reader.Formats() {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", f.Extension, f.Format); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
