// Package api serves the engine over HTTP with gin.
//
// # Routes
//
// GET /api/v2/search/anime?keyword=  search, optional "(YYYY)" suffix
// GET /api/v2/bangumi/:animeId       episodes of a catalog entry
// GET /api/v2/comment/:episodeId     comments by catalog episode handle
// GET /api/v2/comment?locator=       comments by simple or compound locator
// GET /healthz                       liveness and cache counters
//
// # Key Types
//
// Anime, Episode and CommentResponse are the transport shapes. They follow
// the dandanplay field names so existing players can consume them unchanged.
// Every response carries success, errorCode and errorMessage.
//
// # Design Notes
//
// Every request gets an X-Request-Id (generated with uuid when the caller
// sends none) that is threaded into the request context and therefore into
// every log line. When server.token is configured, requests must present it
// as a bearer token or a token query parameter. Errors map to status codes
// through services.HTTPStatus.
package api
