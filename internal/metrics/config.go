package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Config-related Prometheus metrics. These are defined in a standalone package to
// avoid import cycles between the config store and the watch subsystem.

var (
	ConfigReloads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "config_reload_total",
		Help: "Recargas de configuración completadas",
	})

	ConfigReloadFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "config_reload_failures_total",
		Help: "Recargas de configuración fallidas (snapshot previo retenido)",
	})

	ConfigListenerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "config_listener_errors_total",
		Help: "Errores reportados por listeners de cambio de configuración",
	})

	WatchdogChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "watchdog_changes_total",
		Help: "Cambios de archivo detectados por los watchdogs",
	}, []string{"path"})

	WatchdogStatErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "watchdog_stat_errors_total",
		Help: "Ciclos de polling donde el archivo no pudo leerse (transitorio)",
	})
)

// RegisterConfig registers the config metrics on the given registry (or default if nil).
func RegisterConfig(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		ConfigReloads,
		ConfigReloadFailures,
		ConfigListenerErrors,
		WatchdogChanges,
		WatchdogStatErrors,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
