/*
Package loader runs load jobs: it connects to a store, recreates the target
collection, writes generated documents and reconciles the stored count.

A Pipeline runs one job at a time on the calling goroutine:

	p := loader.New(cfg, mstore.NewMongoStore("dload"), f)
	res, err := p.Run(ctx, cfg.DocumentCount)

Progress is published through atomics, so other goroutines can follow a job
without synchronizing with it. Monitor polls a pipeline on its own cadence:

	go loader.Monitor(ctx, p, 250*time.Millisecond, func(pr loader.Progress) {
		fmt.Printf("%d%% (%.0f docs/s)\n", pr.Percent, pr.Rate)
	})

Each pipeline carries a metrics set (documents written, write errors and
retries, write latency, progress) that can be exported in Prometheus text
format with Metrics().WritePrometheus.
*/
package loader
