// Package fileutil writes state files atomically.
package fileutil
