package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// MailboxSource is the view of a mailbox the collector needs.
type MailboxSource interface {
	Name() string
	Len() int
	Dropped() uint64
}

// mailboxCollector reads queue depth and drop counts at scrape time.
type mailboxCollector struct {
	mu      sync.RWMutex
	sources map[string]MailboxSource

	depth   *prometheus.Desc
	dropped *prometheus.Desc
}

var mailboxes = newMailboxCollector()

func init() {
	prometheus.MustRegister(mailboxes)
}

func newMailboxCollector() *mailboxCollector {
	return &mailboxCollector{
		sources: make(map[string]MailboxSource),
		depth: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "mailbox", "depth"),
			"Messages waiting in a worker mailbox",
			[]string{"mailbox"}, nil),
		dropped: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "mailbox", "dropped_total"),
			"Messages discarded because no handler accepted them",
			[]string{"mailbox"}, nil),
	}
}

// RegisterMailbox exposes mb under its name, replacing an earlier mailbox of the same name.
func RegisterMailbox(mb MailboxSource) {
	mailboxes.mu.Lock()
	defer mailboxes.mu.Unlock()
	mailboxes.sources[mb.Name()] = mb
}

// Describe implements prometheus.Collector.
func (c *mailboxCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.depth
	ch <- c.dropped
}

// Collect implements prometheus.Collector.
func (c *mailboxCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for name, mb := range c.sources {
		ch <- prometheus.MustNewConstMetric(c.depth, prometheus.GaugeValue, float64(mb.Len()), name)
		ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(mb.Dropped()), name)
	}
}
