// Package database provides the SQLite run history of banreview.
//
// Every review run is recorded in banreview.db under the XDG data
// directory: one row in runs with its totals, and one row in verdicts per
// evaluated user. The history command reads it back to list past runs or
// to print the users recommended for unban in a given run.
//
// SQLite is accessed through modernc.org/sqlite, a CGO-free driver, so the
// binary stays statically linked.
package database
