// Package metrics exposes Prometheus counters for the library's network
// activity. Registration happens once on first use; callers that do not
// scrape simply pay for a few idle counters.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds all library metrics.
type Registry struct {
	// SSDP discovery
	SSDPSearches   prometheus.Counter
	SSDPResponses  prometheus.Counter
	SSDPDuplicates prometheus.Counter
	SSDPBadPackets prometheus.Counter

	// Description fetches, by kind: root or scpd
	DescriptionFetches *prometheus.CounterVec

	// SOAP control
	SOAPCalls           prometheus.Counter
	SOAPFaults          prometheus.Counter
	SOAPTransportErrors prometheus.Counter
}

// Get returns the shared metrics registry, creating and registering it with
// the default Prometheus registerer on first call.
func Get() *Registry {
	once.Do(func() {
		registry = &Registry{
			SSDPSearches: promauto.NewCounter(prometheus.CounterOpts{
				Name: "upnpc_ssdp_searches_total",
				Help: "Number of M-SEARCH discovery rounds issued.",
			}),
			SSDPResponses: promauto.NewCounter(prometheus.CounterOpts{
				Name: "upnpc_ssdp_responses_total",
				Help: "Number of SSDP responses accepted.",
			}),
			SSDPDuplicates: promauto.NewCounter(prometheus.CounterOpts{
				Name: "upnpc_ssdp_duplicates_total",
				Help: "Number of SSDP responses dropped as duplicate USNs.",
			}),
			SSDPBadPackets: promauto.NewCounter(prometheus.CounterOpts{
				Name: "upnpc_ssdp_bad_packets_total",
				Help: "Number of datagrams that did not parse as SSDP responses.",
			}),
			DescriptionFetches: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "upnpc_description_fetches_total",
				Help: "Number of description document fetches.",
			}, []string{"kind"}),
			SOAPCalls: promauto.NewCounter(prometheus.CounterOpts{
				Name: "upnpc_soap_calls_total",
				Help: "Number of SOAP action invocations that reached the wire.",
			}),
			SOAPFaults: promauto.NewCounter(prometheus.CounterOpts{
				Name: "upnpc_soap_faults_total",
				Help: "Number of SOAP fault responses.",
			}),
			SOAPTransportErrors: promauto.NewCounter(prometheus.CounterOpts{
				Name: "upnpc_soap_transport_errors_total",
				Help: "Number of SOAP calls that failed before a response arrived.",
			}),
		}
	})
	return registry
}
