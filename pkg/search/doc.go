// Package search turns HTTP search requests into cached, paginated result
// envelopes.
//
// # Overview
//
// A search request goes through four steps:
//
//  1. ParseSearchParams normalizes the query string: the limit is clamped,
//     a malformed cursor is dropped, and filters a kind does not support are
//     ignored.
//  2. The normalized parameters are hashed into a cache key. A hit returns
//     the stored envelope byte for byte.
//  3. On a miss the storage pipeline is built and executed.
//  4. Assemble shapes the rows into the response envelope, which is encoded
//     and stored in the cache.
//
// Failures are never cached.
//
// # Pagination
//
// Pages are keyed by a cursor, not an offset. Each page is fetched with one
// extra lookahead row: when it is present there is a next page and the
// cursor of the last row returned is handed out as nextCursor.
//
// # Usage
//
//	svc := search.NewService(store, cache.Nop{}, search.Config{Limits: search.DefaultLimits()})
//	params := svc.ParseParams(core.KindSnippets, r.URL.Query())
//	res, err := svc.Search(ctx, params)
//	if err != nil {
//		// storage.ErrInvalidFilter is a client error
//	}
//	w.Write(res.Payload)
package search
