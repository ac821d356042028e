// Package database provides SQLite-based crawl history for sitescrape.
//
// This package implements the HistoryDB, which stores:
//   - One row per crawl run with its counters and selectors
//   - The visited and still-pending URLs of each run, in frontier order
//   - The extracted records, so a past run can be exported again
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
//  1. The database is a single file under the XDG data directory
//  2. The CGO-free driver keeps cross-compilation simple
//  3. WAL mode lets "history" read while a crawl is writing
package database
