package visualizer

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/leefowlercu/tokenscope/internal/catalog"
)

// modelItem adapts a catalog entry to the list component.
type modelItem struct {
	model catalog.Model
}

func (i modelItem) Title() string { return i.model.DisplayName }

func (i modelItem) Description() string {
	if i.model.Kind == catalog.KindRemote {
		return fmt.Sprintf("%s · %s · downloaded on first use", i.model.ID, i.model.Encoding)
	}
	return fmt.Sprintf("%s · %s", i.model.ID, i.model.Encoding)
}

func (i modelItem) FilterValue() string {
	return i.model.ID + " " + i.model.DisplayName + " " + i.model.Encoding
}

func newPicker(cat *catalog.Catalog, current string) list.Model {
	models := cat.List()
	items := make([]list.Item, len(models))
	selected := 0
	for i, m := range models {
		items[i] = modelItem{model: m}
		if m.ID == current {
			selected = i
		}
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Select a model"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.SetStatusBarItemName("model", "models")
	l.DisableQuitKeybindings()
	l.Select(selected)
	return l
}

// pickedModel returns the highlighted model id.
func pickedModel(l list.Model) (string, bool) {
	item, ok := l.SelectedItem().(modelItem)
	if !ok {
		return "", false
	}
	return item.model.ID, true
}
