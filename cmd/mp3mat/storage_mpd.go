package main

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/fhs/gompd/v2/mpd"
)

// ListSubdirectories lists the slot directories directly under root in MPD's
// database ("" is the music directory itself).
func (c *MPDClient) ListSubdirectories(root string) ([]Directory, error) {
	entries, err := c.listInfo(root)
	if err != nil {
		return nil, err
	}
	return directoriesFromListing(entries), nil
}

// ListFiles lists the track files directly inside dir.
func (c *MPDClient) ListFiles(dir string, maxFiles int) ([]string, error) {
	entries, err := c.listInfo(dir)
	if err != nil {
		return nil, err
	}
	return filesFromListing(entries, maxFiles), nil
}

func (c *MPDClient) listInfo(uri string) ([]mpd.Attrs, error) {
	var entries []mpd.Attrs
	err := c.do(func(conn *mpd.Client) error {
		var err error
		entries, err = conn.ListInfo(uri)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("lsinfo %q: %w", uri, err)
	}
	return entries, nil
}

// directoriesFromListing keeps the entries that are directories named with a
// leading slot digit, sorted by name.
func directoriesFromListing(entries []mpd.Attrs) []Directory {
	var dirs []Directory
	for _, e := range entries {
		p, ok := e["directory"]
		if !ok {
			continue
		}
		slot, ok := slotFromName(p)
		if !ok {
			continue
		}
		dirs = append(dirs, Directory{Name: path.Base(p), Path: p, Slot: slot})
	}
	slices.SortFunc(dirs, func(a, b Directory) int { return strings.Compare(a.Name, b.Name) })
	return dirs
}

// filesFromListing returns the sorted base names of file entries, filtered
// and capped by filterTrackNames.
func filesFromListing(entries []mpd.Attrs, maxFiles int) []string {
	var names []string
	for _, e := range entries {
		if p, ok := e["file"]; ok {
			names = append(names, path.Base(p))
		}
	}
	slices.Sort(names)
	return filterTrackNames(names, maxFiles)
}
