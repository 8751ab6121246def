// Package locator encodes and decodes episode locators.
//
// A simple locator is "<source>:<providerEpisodeId>". A merged episode joins
// several parts with the reserved "$$$" delimiter:
//
//	dandan:1001$$$bilibili:ep334
//
// The first part may omit its source tag when it belongs to the catalog
// entry's own provider; Append namespaces it before adding secondaries.
package locator
