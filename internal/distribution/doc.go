// Package distribution implements the shift-distribution pipeline: fetch a
// month's schedule range, parse it into a duty roster for a target date,
// compose group and personal notifications, deliver them with per-recipient
// failure isolation, and record user/restaurant associations.
//
// Parsing and composition are pure; all I/O goes through the narrow
// RangeFetcher, Sender and Associations ports, so the pipeline is testable
// without a network.
package distribution
