package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"skabillium/memo/cmd/db"
)

const metricsNamespace = "memo"

// Collector is a prometheus.Collector for the server and its keyspace.
type Collector struct {
	commands        *prometheus.CounterVec
	commandErrors   *prometheus.CounterVec
	connectionCount prometheus.Gauge

	stats        func() db.Stats
	keys         *prometheus.Desc
	expires      *prometheus.Desc
	nodes        *prometheus.Desc
	freeNodes    *prometheus.Desc
	nodeCapacity *prometheus.Desc
}

// NewMetricsCollector returns a Collector reading keyspace figures from
// stats on every scrape.
func NewMetricsCollector(stats func() db.Stats) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "db", name), help, nil, nil)
	}
	return &Collector{
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "commands_total",
				Help:      "The number of commands executed.",
			}, []string{"command"},
		),
		commandErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "command_errors_total",
				Help:      "The number of commands that returned an error.",
			}, []string{"command"},
		),
		connectionCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "connection_count",
				Help:      "The number of open client connections.",
			},
		),
		stats:        stats,
		keys:         desc("keys", "The number of keys."),
		expires:      desc("expiring_keys", "The number of keys with a time to live."),
		nodes:        desc("nodes", "The number of list and queue items held in the node slab."),
		freeNodes:    desc("free_nodes", "The number of node slab slots waiting for reuse."),
		nodeCapacity: desc("node_capacity", "The number of node slab slots allocated."),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.commands.Describe(ch)
	c.commandErrors.Describe(ch)
	c.connectionCount.Describe(ch)
	ch <- c.keys
	ch <- c.expires
	ch <- c.nodes
	ch <- c.freeNodes
	ch <- c.nodeCapacity
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.commands.Collect(ch)
	c.commandErrors.Collect(ch)
	c.connectionCount.Collect(ch)

	stats := c.stats()
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(stats.Keys))
	ch <- prometheus.MustNewConstMetric(c.expires, prometheus.GaugeValue, float64(stats.Expires))
	ch <- prometheus.MustNewConstMetric(c.nodes, prometheus.GaugeValue, float64(stats.Nodes))
	ch <- prometheus.MustNewConstMetric(c.freeNodes, prometheus.GaugeValue, float64(stats.FreeNodes))
	ch <- prometheus.MustNewConstMetric(c.nodeCapacity, prometheus.GaugeValue, float64(stats.NodeCapacity))
}

func (c *Collector) commandDone(name string, err error) {
	c.commands.WithLabelValues(name).Inc()
	if err != nil {
		c.commandErrors.WithLabelValues(name).Inc()
	}
}
