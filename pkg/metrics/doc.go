// Package metrics exports reaxar runtime events as Prometheus metrics.
//
// A Collector implements reaxar.Observer. Pass it in the runtime config and
// expose the registry through promhttp:
//
//	reg := prometheus.NewRegistry()
//	collector := metrics.New(metrics.WithRegistry(reg))
//	rt := reaxar.New(reaxar.Config{Observer: collector})
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// Metrics collected:
//   - reaxar_registrations_total: registry adds by kind and outcome (added, overwritten)
//   - reaxar_lookup_misses_total: lenient lookups that found nothing, by kind
//   - reaxar_registry_resets_total: registry resets by kind
//   - reaxar_bindings_active: attached UI bindings by source
//   - reaxar_fetch_total: settled fetch cycles by service and outcome
//   - reaxar_fetch_duration_seconds: fetch duration by service
package metrics
