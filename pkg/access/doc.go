// Package access holds the permission model shared by the API server and its
// clients: the role catalog, the section catalog, per-user override rows and
// the resolver that combines them.
//
// Everything in this package is pure. Callers load a user's override rows
// themselves and pass them in; nothing here performs I/O.
//
// The server runs Authorize on every protected request and is the only
// enforcement point. Clients may run the same rules against a cached snapshot
// to hide controls, but a client-side answer never grants anything.
package access
