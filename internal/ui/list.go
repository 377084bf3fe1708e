package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/moodsplit/internal/models"
)

var (
	_ list.Item = trackItem{}
)

// trackItem wraps [models.MergedRecord] to implement [list.Item].
type trackItem struct {
	record models.MergedRecord
}

func (i trackItem) FilterValue() string { return i.record.Emotion + " " + i.record.Name + " " + i.record.Artist }
func (i trackItem) Title() string       { return i.record.Name }
func (i trackItem) Description() string {
	return fmt.Sprintf("%s • %s", i.record.Emotion, i.record.Artist)
}

func trackItems(records []models.MergedRecord) []list.Item {
	items := make([]list.Item, len(records))
	for i, rec := range records {
		items[i] = trackItem{record: rec}
	}
	return items
}
