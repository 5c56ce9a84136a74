// Package client is a Go client for the CMS API plus a session-scoped cache
// of the caller's permission snapshot.
//
// The snapshot is advisory. Session.IsAllowed exists so a UI or CLI can hide
// controls the user cannot use; it never grants anything. Every protected
// request is authorized again on the server, and a stale or tampered snapshot
// changes only what is displayed. Edits made through another session are not
// pushed here: call Session.Load or Session.Invalidate after a change.
package client
