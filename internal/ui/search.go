package ui

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/pipetune/pipetune/internal/track"
	"github.com/rivo/tview"
)

func (ui *UI) setupSearchPage() {
	ui.searchInput = tview.NewInputField().
		SetLabel(" Search: ").
		SetFieldWidth(0).
		SetFieldBackgroundColor(ui.colors.background).
		SetFieldTextColor(ui.colors.foreground)
	ui.searchInput.SetBackgroundColor(ui.colors.headerBg)

	ui.searchInput.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			ui.submitSearch(ui.searchInput.GetText())
		case tcell.KeyEscape:
			ui.closeSearch()
		}
	})

	ui.resultsTable = tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	ui.resultsTable.SetBackgroundColor(ui.colors.background)
	ui.resultsTable.SetBorder(true).
		SetTitle(" Results (Enter: play, a: queue) ").
		SetBorderColor(ui.colors.borders)

	ui.resultsTable.SetSelectedFunc(func(row, _ int) {
		if t, ok := ui.resultAt(row); ok {
			ui.closeSearch()
			ui.coordinator.AddToQueue(t)
			ui.runAsync(func(ctx context.Context) {
				ui.playTrack(ctx, t)
			})
		}
	})

	ui.resultsTable.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyRune && (event.Rune() == 'a' || event.Rune() == 'A') {
			row, _ := ui.resultsTable.GetSelection()
			if t, ok := ui.resultAt(row); ok {
				ui.coordinator.AddToQueue(t)
				ui.setStatus(fmt.Sprintf("Queued: %s", t.DisplayTitle()))
			}
			return nil
		}
		return event
	})
}

func (ui *UI) searchLayout() tview.Primitive {
	return tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(ui.searchInput, 1, 0, true).
		AddItem(ui.resultsTable, 0, 1, false)
}

func (ui *UI) openSearch() {
	ui.searchInput.SetText("")
	ui.showRecentSearches()
	ui.pages.SwitchToPage("search")
	ui.app.SetFocus(ui.searchInput)
}

func (ui *UI) closeSearch() {
	ui.pages.SwitchToPage("main")
	ui.app.SetFocus(ui.queueTable)
}

func (ui *UI) submitSearch(query string) {
	if query == "" {
		return
	}

	ui.runAsync(func(ctx context.Context) {
		tracks, err := ui.svc.Search(ctx, query)
		if err != nil {
			ui.setStatus("Search failed")
			return
		}

		ui.mu.Lock()
		ui.searchResults = tracks
		ui.mu.Unlock()

		ui.app.QueueUpdateDraw(func() {
			ui.renderResults(tracks)
			ui.app.SetFocus(ui.resultsTable)
		})
	})
}

func (ui *UI) resultAt(row int) (track.Track, bool) {
	ui.mu.Lock()
	defer ui.mu.Unlock()

	index := row - 1 // header row
	if index < 0 || index >= len(ui.searchResults) {
		return track.Track{}, false
	}
	return ui.searchResults[index], true
}

func (ui *UI) renderResults(tracks []track.Track) {
	ui.resultsTable.Clear()

	headers := []string{"Title", "Artist", "Album", "Length"}
	for col, h := range headers {
		cell := tview.NewTableCell(" " + h + " ").
			SetTextColor(ui.colors.queueHeaderFg).
			SetBackgroundColor(ui.colors.queueHeaderBg).
			SetSelectable(false)
		if col == 0 {
			cell.SetExpansion(1)
		}
		ui.resultsTable.SetCell(0, col, cell)
	}

	for i, t := range tracks {
		ui.resultsTable.SetCell(i+1, 0, tview.NewTableCell(t.Title).SetTextColor(ui.colors.foreground).SetExpansion(1))
		ui.resultsTable.SetCell(i+1, 1, tview.NewTableCell(t.Artist).SetTextColor(ui.colors.foreground))
		ui.resultsTable.SetCell(i+1, 2, tview.NewTableCell(t.Album).SetTextColor(ui.colors.foreground))
		ui.resultsTable.SetCell(i+1, 3, tview.NewTableCell(t.FormatDuration()).SetTextColor(ui.colors.foreground))
	}

	ui.resultsTable.Select(1, 0)
}

// showRecentSearches lists the persisted search history until a query runs.
func (ui *UI) showRecentSearches() {
	ui.resultsTable.Clear()

	recent := ui.svc.RecentSearches()
	if len(recent) == 0 {
		return
	}

	ui.resultsTable.SetCell(0, 0, tview.NewTableCell(" Recent searches ").
		SetTextColor(ui.colors.queueHeaderFg).
		SetBackgroundColor(ui.colors.queueHeaderBg).
		SetSelectable(false).
		SetExpansion(1))

	for i, q := range recent {
		ui.resultsTable.SetCell(i+1, 0, tview.NewTableCell(q).SetTextColor(ui.colors.helpFg))
	}

	ui.mu.Lock()
	ui.searchResults = nil
	ui.mu.Unlock()
}
