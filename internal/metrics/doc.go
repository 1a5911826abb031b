/*
Package metrics exports Prometheus metrics for a VFS core: operation
counters and latency histograms, mount/observer gauges, and a per-component
health gauge. Disabled by default — Config.Enabled gates both the HTTP
server and whether the Record and Set methods do anything, so callers never need
to branch on whether metrics are on.

	collector, _ := metrics.NewCollector(&metrics.Config{
		Enabled:   true,
		Port:      9090,
		Namespace: "vfscore",
	})
	_ = collector.Start(ctx)
	defer collector.Stop(ctx)

	start := time.Now()
	_, err := v.Browse(ctx, "/data")
	collector.RecordOperation("browse", time.Since(start), err == nil)
*/
package metrics
