// Package provider defines the contract every danmaku source implements and
// the registry the engine dispatches through.
//
// A Provider searches its upstream catalog, lists episodes for a result and
// fetches the raw comment records for an episode. Providers whose upstream
// serves comments in time-bounded chunks also implement SegmentedProvider;
// FetchComments downloads those segments in bounded batches. FormatComments
// converts the provider-shaped records into danmaku.Raw so the normalizer
// never sees upstream formats.
package provider
