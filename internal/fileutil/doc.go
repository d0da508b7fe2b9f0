// Package fileutil provides the file system helpers shared across the
// harness: directory scanning with extension and name-pattern filtering
// (suite discovery) and recursive tree copying with directory exclusions
// (staging local repos into the bench workspace).
//
// Scans skip hidden directories automatically, return absolute paths, and
// sort their output so discovery order is deterministic across platforms.
package fileutil
