// Package models resolves a requested whisper model size to a local cache
// path, deciding whether a download is needed and reporting coarse progress
// milestones through a caller-supplied sink.
package models

import (
	"fmt"
	"sort"
)

// Info describes a model size for display in the UI.
type Info struct {
	Size     string `json:"size"`
	DiskSize string `json:"disk_size"`
	Speed    string `json:"speed"`
	Accuracy string `json:"accuracy"`
	VRAM     string `json:"vram"`
}

var catalog = map[string]Info{
	"tiny":     {Size: "tiny", DiskSize: "~75MB", Speed: "Fastest", Accuracy: "Basic", VRAM: "~1GB"},
	"base":     {Size: "base", DiskSize: "~150MB", Speed: "Fast", Accuracy: "Good", VRAM: "~1GB"},
	"small":    {Size: "small", DiskSize: "~500MB", Speed: "Medium", Accuracy: "Better", VRAM: "~2GB"},
	"medium":   {Size: "medium", DiskSize: "~1.5GB", Speed: "Slow", Accuracy: "Great", VRAM: "~5GB"},
	"large-v3": {Size: "large-v3", DiskSize: "~3GB", Speed: "Slowest", Accuracy: "Best", VRAM: "~10GB"},
}

// catalogOrder fixes the display order from fastest to most accurate.
var catalogOrder = []string{"tiny", "base", "small", "medium", "large-v3"}

// Catalog returns all known model sizes in display order.
func Catalog() []Info {
	infos := make([]Info, 0, len(catalogOrder))
	for _, size := range catalogOrder {
		infos = append(infos, catalog[size])
	}
	return infos
}

// Known reports whether size names a catalog entry.
func Known(size string) bool {
	_, ok := catalog[size]
	return ok
}

// KnownSizes returns the sorted size identifiers.
func KnownSizes() []string {
	sizes := make([]string, 0, len(catalog))
	for size := range catalog {
		sizes = append(sizes, size)
	}
	sort.Strings(sizes)
	return sizes
}

// Validate returns an error naming the valid sizes when size is unknown.
func Validate(size string) error {
	if Known(size) {
		return nil
	}
	return fmt.Errorf("unknown model size %q (valid: %v)", size, catalogOrder)
}
