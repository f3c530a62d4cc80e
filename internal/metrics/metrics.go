// Package metrics registers the plugin subsystem's Prometheus
// instrumentation, grounded on storage/disk/metrics.go's
// package-level-vars-plus-explicit-Register style.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PluginsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ring_plugind",
		Name:      "plugins_loaded",
		Help:      "Number of plugins currently loaded.",
	})

	PluginLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ring_plugind",
		Name:      "plugin_loads_total",
		Help:      "Plugin load attempts, partitioned by outcome.",
	}, []string{"outcome"})

	PluginUnloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ring_plugind",
		Name:      "plugin_unloads_total",
		Help:      "Plugin unload attempts, partitioned by outcome.",
	}, []string{"outcome"})

	ComponentsOwned = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ring_plugind",
		Name:      "components_owned",
		Help:      "Components currently owned by services managers, partitioned by kind.",
	}, []string{"kind"})

	HandlerToggles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ring_plugind",
		Name:      "handler_toggles_total",
		Help:      "Call/chat handler attach-detach decisions, partitioned by kind and direction.",
	}, []string{"kind", "direction"})

	ServiceInvocations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ring_plugind",
		Name:      "service_invocations_total",
		Help:      "Plugin-initiated host service calls, partitioned by service name and outcome.",
	}, []string{"service", "outcome"})
)

// Register registers every collector with reg. Collectors already
// registered with reg are skipped, so calling it again (for example
// from more than one Host) returns nil.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		PluginsLoaded,
		PluginLoads,
		PluginUnloads,
		ComponentsOwned,
		HandlerToggles,
		ServiceInvocations,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}
