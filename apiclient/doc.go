// Package apiclient authenticates outbound HTTP requests against the
// session layer.
//
// The [Transport] attaches the current bearer token to every non-public
// request and tags it with a request ID. On a 401 it asks its [TokenSource]
// for a refresh and replays the request exactly once; concurrent 401s
// collapse into one refresh because the token source single-flights.
//
// The [Client] sits above the transport and maps terminal statuses onto the
// package's error taxonomy: a 401 that survived the retry becomes
// SessionExpired, a 403 becomes Forbidden and raises a navigation intent,
// 5xx becomes ServerError. A 404 is not an error here; callers decide what
// a missing resource means.
package apiclient
