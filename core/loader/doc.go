// Package loader registers the route groups of the status API.
//
// A Feature names itself, says whether it is enabled and mounts its routes on a fiber
// router. The Manager loads every enabled feature in registration order and returns the
// names it loaded so serve can log them:
//
//	m := loader.NewManager()
//	m.Register(status.NewFeature(store, runner, maxRetries, ttl, logger))
//	names, err := m.LoadAll(app)
package loader
