package load

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dLoad/cmd/util"
	"github.com/ValentinKolb/dLoad/lib/common"
	"github.com/ValentinKolb/dLoad/lib/loader"
	"github.com/ValentinKolb/dLoad/lib/random"
	"github.com/ValentinKolb/dLoad/lib/store"
	"github.com/dustin/go-humanize"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"time"
)

var (
	log = logger.GetLogger("cmd")

	// LoadCmd generates documents and writes them into the target collection
	LoadCmd = &cobra.Command{
		Use:   "load",
		Short: "Generate documents and load them into a store",
		Long: `Drops and recreates the target collection, writes the requested number of
generated documents and compares the stored count afterward.

The configuration can be set via command line flags, environment variables
(DLOAD_<FLAG>, e.g. DLOAD_TARGET_DB=test) or a configuration file (--config).`,
		PreRunE: util.BindCommandFlags,
		RunE:    run,
	}
)

func init() {
	util.SetupConnectionFlags(LoadCmd)
	util.SetupGeneratorFlags(LoadCmd)

	key := "documents"
	LoadCmd.Flags().IntP(key, "n", 1000, util.WrapString("Number of documents to write"))

	key = "collection"
	LoadCmd.Flags().String(key, common.DefaultCollection, util.WrapString("Collection to load into. It is dropped before loading!"))

	key = "write-retries"
	LoadCmd.Flags().Uint(key, 0, util.WrapString("How many times a failed write is retried when the failure is temporary (network errors, timeouts)"))

	key = "write-ack"
	LoadCmd.Flags().String(key, common.DefaultWriteAck, util.WrapString("Confirmation every write waits for (unacknowledged, acknowledged, journaled, majority)"))

	key = "poll-interval"
	LoadCmd.Flags().Duration(key, common.DefaultPollInterval, util.WrapString("How often the progress is refreshed"))

	key = "skip-probe"
	LoadCmd.Flags().Bool(key, false, util.WrapString("Do not test the connection before loading"))

	key = "no-progress"
	LoadCmd.Flags().Bool(key, false, util.WrapString("Do not show a progress bar"))

	key = "metrics-file"
	LoadCmd.Flags().String(key, "", util.WrapString("Write the job metrics in Prometheus text format to this file"))
}

func run(cmd *cobra.Command, _ []string) error {
	cfg := util.GetLoadConfig()
	fmt.Println("Configuration:")
	fmt.Println(cfg.String())

	// rejected before the progress display starts
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := store.ParseAckLevel(cfg.WriteAck); err != nil {
		return common.WrapError(common.ErrCConfiguration, err, "invalid write acknowledgment")
	}

	s, err := util.GetStore(cfg)
	if err != nil {
		return err
	}
	rand := random.NewSeeded(cfg.Seed)
	f, err := util.GetFactory(cfg, rand)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	p := loader.New(cfg, s, f)

	if !viper.GetBool("skip-probe") {
		// a failed probe is only reported, the load itself decides
		if err := p.TestConnection(ctx); err != nil {
			log.Warningf("connection test failed: %v", err)
		}
	}

	monitorDone := make(chan error, 1)
	if viper.GetBool("no-progress") || cfg.DocumentCount == 0 {
		close(monitorDone)
	} else {
		monitorCtx, cancelMonitor := context.WithCancel(ctx)
		defer cancelMonitor()
		go func() {
			monitorDone <- showProgress(monitorCtx, p, int64(cfg.DocumentCount), cfg.PollInterval)
		}()
	}

	res, runErr := p.Run(ctx, cfg.DocumentCount)
	if err := <-monitorDone; err != nil && runErr == nil {
		log.Debugf("progress display ended: %v", err)
	}

	if path := viper.GetString("metrics-file"); path != "" {
		if err := writeMetrics(path, p); err != nil {
			log.Errorf("failed to write metrics: %v", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	printSummary(cfg, p, res, rand)
	return nil
}

// showProgress renders a progress bar until the job completes or fails
func showProgress(ctx context.Context, p *loader.Pipeline, total int64, interval time.Duration) error {
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("loading"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionThrottle(interval),
		progressbar.OptionFullWidth(),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
	)

	err := loader.Monitor(ctx, p, interval, func(pr loader.Progress) {
		bar.Describe(fmt.Sprintf("%-11s", pr.State))
		_ = bar.Set64(pr.Written)
	})
	if err != nil {
		_ = bar.Exit()
		return err
	}
	return bar.Finish()
}

func printSummary(cfg common.LoadConfig, p *loader.Pipeline, res loader.Result, rand *random.Allocator) {
	fmt.Println()
	fmt.Printf("Loaded %s documents into %s.%s in %s (%s docs/sec)\n",
		humanize.Comma(res.Written),
		cfg.TargetDB, cfg.Collection,
		res.Duration.Round(time.Millisecond),
		humanize.FormatFloat("#,###.#", res.Rate))
	if res.Mismatch {
		fmt.Printf("WARNING: the collection holds %s documents, expected %s\n",
			humanize.Comma(res.Stored), humanize.Comma(res.Expected))
	} else {
		fmt.Printf("Stored document count verified: %s\n", humanize.Comma(res.Stored))
	}
	if m := p.Metrics(); m.WriteErrors() > 0 {
		fmt.Printf("Write errors: %s, retried: %s\n", humanize.Comma(int64(m.WriteErrors())), humanize.Comma(int64(m.WriteRetries())))
	}
	fmt.Printf("Random strings: %s\n", rand.Stats())
}

func writeMetrics(path string, p *loader.Pipeline) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	p.Metrics().WritePrometheus(f)
	log.Infof("metrics written to %s", path)
	return nil
}
