// Package store remembers the wheel's last selection between runs.
//
// A single JSON file holds the committed shift and the cipher mode. Writes go
// through a temp file and a rename, so a crash mid-write leaves the previous
// file intact. All methods are safe for concurrent use.
package store
