// Package pagination aggregates paginated draw history into one window.
//
// An Aggregator puts every page request of one aggregation in flight at once,
// waits for all of them, and merges the pages by page index, so completion
// order never changes the result. The batch is all-or-nothing: a single failed
// page fails the aggregation and the pages that did arrive are discarded.
//
// Example usage:
//
//	agg, err := pagination.NewAggregator(upstreamClient, pagination.DefaultConfig())
//	history, err := agg.Aggregate(ctx, game.WinGo1M)
//
// After the merge the history is truncated to WindowSize records (newest first)
// and rejected when fewer than MinRequired remain. Pages are not deduplicated:
// overlapping pages from the provider pass through unchanged.
package pagination
