// Package dispatch provides failover across generation backends.
//
// A Dispatcher holds a static priority list of ai.Backend values. Each
// Generate call walks the list from the top, one attempt per backend, and
// returns the first successful response. Failures are sorted into
// categories (quota, unavailable, invalid_model, unclassified) for logging
// and metrics; every category advances to the next backend.
package dispatch
