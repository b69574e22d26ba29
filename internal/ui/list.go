package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/playcache/internal/models"
)

var (
	_ list.Item = mediaItem{}
)

// mediaItem wraps [models.ResolvedMediaItem] to implement [list.Item].
type mediaItem struct {
	index int
	item  models.ResolvedMediaItem
}

func (i mediaItem) FilterValue() string { return i.item.Name }
func (i mediaItem) Title() string       { return fmt.Sprintf("%d. %s", i.index+1, i.item.Name) }
func (i mediaItem) Description() string {
	return fmt.Sprintf("%s • %s", i.item.Kind, i.item.Path)
}

func newLibrary(items []models.ResolvedMediaItem, width, height int) list.Model {
	entries := make([]list.Item, len(items))
	for i, item := range items {
		entries[i] = mediaItem{index: i, item: item}
	}

	l := list.New(entries, list.NewDefaultDelegate(), max(width-4, 0), max(height-8, 0))
	l.Title = "Cached Media"
	return l
}
