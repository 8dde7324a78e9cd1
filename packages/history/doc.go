// Package history records executed requests.
//
// Each entry is a JSON file under user/history named by its microsecond
// timestamp. Entries are written once and never modified. Iterate reads the
// directory afresh on every call and yields entries newest first.
package history
