// Package ghclient wraps the GitHub REST API for listing a user's
// repositories and reading their contents.
//
// Every call waits on a client-side token bucket and is retried with
// exponential backoff on rate limits and 5xx responses. Repository contents
// are exposed as a walker.Source whose failures are *walker.AccessError.
package ghclient
