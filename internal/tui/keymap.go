package tui

import (
	"strings"

	"charm.land/bubbles/v2/key"
)

// keyMap holds the board key bindings.
type keyMap struct {
	quit       key.Binding
	reload     key.Binding
	toggleHelp key.Binding
	moveLeft   key.Binding
	moveRight  key.Binding
	moveUp     key.Binding
	moveDown   key.Binding
	pickUp     key.Binding
	drop       key.Binding
	cancel     key.Binding
	groupBy    key.Binding
	itemInfo   key.Binding
	copyID     key.Binding
}

// KeyConfig overrides single bindings. Blank fields keep the defaults.
type KeyConfig struct {
	PickUp  string
	GroupBy string
	CopyID  string
}

// newKeyMap constructs the default bindings with optional overrides.
func newKeyMap(cfg KeyConfig) keyMap {
	pickKeys, pickHelp := parseBindingKeys(cfg.PickUp, "space")
	groupKeys, groupHelp := parseBindingKeys(cfg.GroupBy, "g")
	copyKeys, copyHelp := parseBindingKeys(cfg.CopyID, "y")
	return keyMap{
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:   key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "left")),
		moveRight:  key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "right")),
		moveUp:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		moveDown:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		pickUp:     key.NewBinding(key.WithKeys(pickKeys...), key.WithHelp(pickHelp, "pick up / drop")),
		drop:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "drop / info")),
		cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		groupBy:    key.NewBinding(key.WithKeys(groupKeys...), key.WithHelp(groupHelp, "cycle grouping")),
		itemInfo:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "item info")),
		copyID:     key.NewBinding(key.WithKeys(copyKeys...), key.WithHelp(copyHelp, "copy id")),
	}
}

// parseBindingKeys converts one configured key into matcher keys and help text.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	switch {
	case raw == "space" || raw == " ":
		return []string{"space", " "}, "space"
	case len([]rune(raw)) == 1:
		r := []rune(raw)[0]
		if r >= 'A' && r <= 'Z' {
			return []string{raw, "shift+" + strings.ToLower(raw)}, raw
		}
		return []string{raw}, raw
	default:
		return []string{strings.ToLower(raw)}, raw
	}
}

// ShortHelp returns the footer bindings.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.pickUp, k.drop, k.cancel, k.groupBy, k.itemInfo, k.toggleHelp, k.quit}
}

// FullHelp returns the expanded help grid.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown},
		{k.pickUp, k.drop, k.cancel},
		{k.groupBy, k.itemInfo, k.copyID, k.reload, k.toggleHelp, k.quit},
	}
}
