// Package token manages OAuth access token lifecycle for mail accounts.
//
// The Manager guarantees callers a token valid for at least a freshness
// window, refreshing through an ordered strategy chain (remote refresh
// endpoint, then direct provider exchange) and persisting refreshed
// state to the credential store. A background sweep soft-disables
// accounts whose tokens have gone stale beyond recovery so that tool
// calls surface a re-authentication hint instead of connection errors.
package token
