// Package store persists which users belong to which restaurant.
//
// An association is written the first time a user is personally notified
// about a shift; later lookups (e.g. the /duty command) use it to route a
// user to their restaurants. Records are never deleted by the pipeline.
package store
