package daemon

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"slurmstat/application"
	"slurmstat/common"
	"slurmstat/report"
)

const namespace = "slurmstat"

// usageCollector exports the default-window usage report, computed afresh at every scrape.
type usageCollector struct {
	runner  *application.Runner
	now     func() time.Time
	timeout time.Duration

	up           *prometheus.Desc
	jobs         *prometheus.Desc
	nodes        *prometheus.Desc
	cpus         *prometheus.Desc
	gpus         *prometheus.Desc
	usageSeconds *prometheus.Desc
}

var _ = prometheus.Collector((*usageCollector)(nil))

func newUsageCollector(runner *application.Runner, now func() time.Time, timeout time.Duration) *usageCollector {
	labels := []string{"partition", "user"}
	return &usageCollector{
		runner:  runner,
		now:     now,
		timeout: timeout,
		up: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "up"),
			"Whether the last accounting query succeeded",
			nil, nil),
		jobs: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "jobs"),
			"Jobs in the reporting window",
			labels, nil),
		nodes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "nodes"),
			"Sum of allocated nodes over jobs in the reporting window",
			labels, nil),
		cpus: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "cpus"),
			"Sum of allocated cpus over jobs in the reporting window",
			labels, nil),
		gpus: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "gpus"),
			"Sum of allocated gpus over jobs in the reporting window",
			labels, nil),
		usageSeconds: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "usage_seconds"),
			"Node-seconds occupied in the reporting window, overlapping jobs counted once",
			labels, nil),
	}
}

func (c *usageCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.up
	ch <- c.jobs
	ch <- c.nodes
	ch <- c.cpus
	ch <- c.gpus
	ch <- c.usageSeconds
}

func (c *usageCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	from, to := common.LastMonth(c.now())
	rep, err := c.runner.Run(ctx, &application.Request{From: from, To: to, Kind: report.UsageKind})
	if err != nil {
		common.Log.Warningf("Scrape failed: %v", err)
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
	for _, t := range rep.Tables {
		for _, r := range t.Rows {
			ch <- prometheus.MustNewConstMetric(c.jobs, prometheus.GaugeValue, float64(r.Jobs), t.Partition, r.User)
			ch <- prometheus.MustNewConstMetric(c.nodes, prometheus.GaugeValue, float64(r.Nodes), t.Partition, r.User)
			ch <- prometheus.MustNewConstMetric(c.cpus, prometheus.GaugeValue, float64(r.CPUs), t.Partition, r.User)
			ch <- prometheus.MustNewConstMetric(c.gpus, prometheus.GaugeValue, float64(r.GPUs), t.Partition, r.User)
			ch <- prometheus.MustNewConstMetric(c.usageSeconds, prometheus.GaugeValue, r.UsageSeconds, t.Partition, r.User)
		}
	}
}
