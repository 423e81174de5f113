// Package preflight runs the diagnostics behind `evidencemcp doctor`:
// configuration validity, data directory health, per-source reachability
// and the optional cache and embedding backends.
//
//	checker := preflight.New(preflight.WithOffline(true))
//	results := checker.RunAll(ctx, cfg)
//	if checker.HasCriticalFailures(results) {
//	    // refuse to serve
//	}
package preflight
