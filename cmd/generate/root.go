package generate

import (
	"bufio"
	"fmt"
	"github.com/ValentinKolb/dLoad/cmd/util"
	"github.com/ValentinKolb/dLoad/lib/codec"
	"github.com/ValentinKolb/dLoad/lib/common"
	"github.com/ValentinKolb/dLoad/lib/factory"
	"github.com/ValentinKolb/dLoad/lib/random"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"io"
	"os"
)

// GenerateCmd prints generated documents without touching a store
var GenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print generated documents",
	Long: `Generates documents with the configured factory and prints them to stdout.
With --format json (default) every document is printed on its own line as
relaxed MongoDB extended JSON. With --format bson the documents are written
back to back as raw BSON, the layout mongorestore reads from .bson files.`,
	PreRunE: util.BindCommandFlags,
	RunE:    run,
}

func init() {
	util.SetupGeneratorFlags(GenerateCmd)

	key := "documents"
	GenerateCmd.Flags().IntP(key, "n", 1, util.WrapString("Number of documents to print"))

	key = "format"
	GenerateCmd.Flags().String(key, "json", util.WrapString("Output format of the documents (json, bson)"))
}

func run(_ *cobra.Command, _ []string) error {
	cfg := util.GetLoadConfig()
	if cfg.DocumentCount < 0 {
		return common.NewError(common.ErrCConfiguration, "document count must not be negative (got %d)", cfg.DocumentCount)
	}

	format := viper.GetString("format")
	c, ok := codec.Get(format)
	if !ok {
		return common.NewError(common.ErrCConfiguration, "invalid format %q (expected json or bson)", format)
	}

	rand := random.NewSeeded(cfg.Seed)
	f, err := util.GetFactory(cfg, rand)
	if err != nil {
		return err
	}

	if err := writeDocuments(os.Stdout, f, c, cfg.DocumentCount); err != nil {
		return err
	}

	if viper.GetString("log-level") == "debug" {
		fmt.Fprintf(os.Stderr, "%s\n", rand.Stats())
	}
	return nil
}

// writeDocuments encodes n documents of f to w. JSON documents are
// terminated by a newline, BSON documents carry their own length.
func writeDocuments(w io.Writer, f factory.IDocumentFactory, c codec.IDocumentCodec, n int) error {
	out := bufio.NewWriter(w)
	newline := c.Name() == "json"

	for i := 0; i < n; i++ {
		doc, err := f.GenerateDocument()
		if err != nil {
			return err
		}
		b, err := c.Encode(doc)
		if err != nil {
			return err
		}
		if newline {
			b = append(b, '\n')
		}
		// bufio keeps the first write error and returns it from every later call
		if _, err := out.Write(b); err != nil {
			return common.WrapError(common.ErrCWrite, err, "writing document %d", i+1)
		}
	}

	if err := out.Flush(); err != nil {
		return common.WrapError(common.ErrCWrite, err, "writing documents")
	}
	return nil
}
