// Package ui implements the terminal interface: play queue, search, and a
// now-playing footer driven by playback state changes.
package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/pipetune/pipetune/internal/api"
	"github.com/pipetune/pipetune/internal/config"
	"github.com/pipetune/pipetune/internal/player"
	"github.com/pipetune/pipetune/internal/service"
	"github.com/pipetune/pipetune/internal/track"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const (
	VolumeStep     = 5
	HeaderHeight   = 3
	FooterHeight   = 3
	requestTimeout = 30 * time.Second
)

type UI struct {
	app         *tview.Application
	svc         *service.PlaybackService
	coordinator *player.Coordinator
	config      *config.Config

	pages        *tview.Pages
	queueTable   *tview.Table
	footerView   *tview.TextView
	statusView   *tview.TextView
	searchInput  *tview.InputField
	resultsTable *tview.Table

	mu            sync.Mutex
	state         player.State
	searchResults []track.Track
	status        string

	colors struct {
		background    tcell.Color
		foreground    tcell.Color
		borders       tcell.Color
		highlight     tcell.Color
		mutedVolume   tcell.Color
		headerBg      tcell.Color
		queueHeaderBg tcell.Color
		queueHeaderFg tcell.Color
		helpFg        tcell.Color
		helpHotkey    tcell.Color
	}
}

func NewUI(svc *service.PlaybackService, coordinator *player.Coordinator, cfg *config.Config) *UI {
	ui := &UI{
		app:         tview.NewApplication(),
		svc:         svc,
		coordinator: coordinator,
		config:      cfg,
		state:       coordinator.Snapshot(),
	}

	ui.colors.background = config.GetColor(cfg.Theme.Background)
	ui.colors.foreground = config.GetColor(cfg.Theme.Foreground)
	ui.colors.borders = config.GetColor(cfg.Theme.Borders)
	ui.colors.highlight = config.GetColor(cfg.Theme.Highlight)
	ui.colors.mutedVolume = config.GetColor(cfg.Theme.MutedVolume)
	ui.colors.headerBg = config.GetColor(cfg.Theme.HeaderBackground)
	ui.colors.queueHeaderBg = config.GetColor(cfg.Theme.QueueHeaderBg)
	ui.colors.queueHeaderFg = config.GetColor(cfg.Theme.QueueHeaderFg)
	ui.colors.helpFg = config.GetColor(cfg.Theme.HelpForeground)
	ui.colors.helpHotkey = config.GetColor(cfg.Theme.HelpHotkey)

	coordinator.Subscribe(ui.onStateChanged)

	return ui
}

// Run builds the layout and blocks until the UI exits.
func (ui *UI) Run() error {
	ui.setupLayout()
	ui.refresh()
	return ui.app.SetRoot(ui.pages, true).Run()
}

// Shutdown stops the UI from another goroutine.
func (ui *UI) Shutdown() {
	ui.app.QueueUpdateDraw(func() {
		ui.app.Stop()
	})
}

// onStateChanged runs synchronously after every coordinator mutation. The
// redraw itself is queued so mutations made inside event handlers do not
// deadlock the draw loop.
func (ui *UI) onStateChanged(state player.State) {
	ui.mu.Lock()
	ui.state = state
	ui.mu.Unlock()

	go ui.app.QueueUpdateDraw(ui.refresh)
}

func (ui *UI) snapshot() player.State {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	return ui.state
}

func (ui *UI) setupLayout() {
	header := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	header.SetBackgroundColor(ui.colors.headerBg)
	fmt.Fprintf(header, "\n[%s::b]%s[-::-] [%s]v%s - %s[-]",
		ui.colors.highlight.String(), config.AppName,
		ui.colors.helpFg.String(), config.AppVersion, config.AppTagline)

	ui.queueTable = tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	ui.queueTable.SetBackgroundColor(ui.colors.background)
	ui.queueTable.SetBorder(true).
		SetTitle(" Queue ").
		SetBorderColor(ui.colors.borders)
	ui.queueTable.SetSelectedFunc(func(row, _ int) {
		ui.playQueueRow(row)
	})

	ui.footerView = tview.NewTextView().SetDynamicColors(true)
	ui.footerView.SetBackgroundColor(ui.colors.background)

	ui.statusView = tview.NewTextView().SetDynamicColors(true)
	ui.statusView.SetBackgroundColor(ui.colors.background)

	footer := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(ui.footerView, 0, 2, false).
		AddItem(ui.statusView, 1, 0, false)

	main := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, HeaderHeight, 0, false).
		AddItem(ui.queueTable, 0, 1, true).
		AddItem(footer, FooterHeight, 0, false)

	ui.setupSearchPage()

	ui.pages = tview.NewPages().
		AddPage("main", main, true, true).
		AddPage("search", ui.searchLayout(), true, false)

	ui.app.SetInputCapture(ui.globalInputHandler)
}

func (ui *UI) globalInputHandler(event *tcell.EventKey) *tcell.EventKey {
	// The search page owns its own input.
	if name, _ := ui.pages.GetFrontPage(); name == "search" {
		if event.Key() == tcell.KeyEscape {
			ui.closeSearch()
			return nil
		}
		return event
	}

	switch event.Key() {
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q', 'Q':
			ui.app.Stop()
			return nil
		case ' ':
			ui.coordinator.TogglePlay()
			return nil
		case 'n', 'N':
			ui.runAsync(func(ctx context.Context) {
				ui.svc.PlayNext(ctx)
			})
			return nil
		case 'p', 'P':
			ui.runAsync(func(ctx context.Context) {
				ui.svc.PlayPrevious(ctx)
			})
			return nil
		case 's', 'S':
			ui.coordinator.ToggleShuffle()
			return nil
		case 'r', 'R':
			ui.coordinator.ToggleRepeat()
			return nil
		case 'm', 'M':
			ui.coordinator.ToggleMute()
			return nil
		case '+', '=':
			ui.adjustVolume(VolumeStep)
			return nil
		case '-', '_':
			ui.adjustVolume(-VolumeStep)
			return nil
		case 'i', 'I':
			ui.retryNextSource()
			return nil
		case 'x', 'X':
			ui.coordinator.ClearQueue()
			return nil
		case 'd', 'D':
			row, _ := ui.queueTable.GetSelection()
			ui.coordinator.RemoveFromQueue(row - 1)
			return nil
		case '/':
			ui.openSearch()
			return nil
		}
	case tcell.KeyEscape:
		ui.app.Stop()
		return nil
	}
	return event
}

func (ui *UI) adjustVolume(delta int) {
	state := ui.snapshot()
	ui.coordinator.SetVolume(state.Volume + delta)
	ui.config.Playback.Volume = config.ClampVolume(state.Volume + delta)
	if err := ui.config.Save(); err != nil {
		log.Warn().Err(err).Msg("Failed to save config")
	}
}

func (ui *UI) playQueueRow(row int) {
	state := ui.snapshot()
	index := row - 1 // header row
	if index < 0 || index >= len(state.Queue) {
		return
	}
	t := state.Queue[index]
	ui.runAsync(func(ctx context.Context) {
		ui.playTrack(ctx, t)
	})
}

func (ui *UI) playTrack(ctx context.Context, t track.Track) {
	err := ui.svc.PlayTrack(ctx, t)

	var denied *api.AccessDeniedError
	switch {
	case errors.As(err, &denied):
		ui.setStatus(fmt.Sprintf("%s - press 'i' to try another source", denied.Message))
	case err != nil:
		ui.setStatus("Playback failed")
	default:
		if !ui.coordinator.Snapshot().IsPlaying {
			ui.setStatus("Can't play this track - press 'i' to try another source")
		} else {
			ui.setStatus("")
		}
	}
}

func (ui *UI) retryNextSource() {
	ui.runAsync(func(ctx context.Context) {
		ok, err := ui.svc.RetryNextSource(ctx)
		var denied *api.AccessDeniedError
		switch {
		case errors.As(err, &denied):
			ui.setStatus(fmt.Sprintf("%s - press 'i' to try another source", denied.Message))
		case err != nil:
			ui.setStatus("Playback failed")
		case !ok:
			ui.setStatus("No more sources to try")
		default:
			ui.setStatus("")
		}
	})
}

// runAsync executes a network-bound action off the event loop and redraws
// when it completes.
func (ui *UI) runAsync(fn func(ctx context.Context)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		fn(ctx)
		ui.app.QueueUpdateDraw(ui.refresh)
	}()
}

func (ui *UI) setStatus(status string) {
	ui.mu.Lock()
	ui.status = status
	ui.mu.Unlock()
}

func (ui *UI) refresh() {
	state := ui.snapshot()
	ui.refreshQueueTable(state)
	ui.refreshFooter(state)
}

func (ui *UI) refreshQueueTable(state player.State) {
	ui.queueTable.Clear()

	headers := []string{"#", "Title", "Artist", "Length"}
	for col, h := range headers {
		cell := tview.NewTableCell(" " + h + " ").
			SetTextColor(ui.colors.queueHeaderFg).
			SetBackgroundColor(ui.colors.queueHeaderBg).
			SetSelectable(false)
		if col == 1 {
			cell.SetExpansion(1)
		}
		ui.queueTable.SetCell(0, col, cell)
	}

	currentID := ""
	if state.CurrentTrack != nil {
		currentID = state.CurrentTrack.ID
	}

	for i, t := range state.Queue {
		indicator := fmt.Sprintf("%d", i+1)
		color := ui.colors.foreground
		if t.ID == currentID {
			indicator = "▶"
			color = ui.colors.highlight
		}

		ui.queueTable.SetCell(i+1, 0, tview.NewTableCell(" "+indicator+" ").SetTextColor(color))
		ui.queueTable.SetCell(i+1, 1, tview.NewTableCell(t.Title).SetTextColor(color).SetExpansion(1))
		ui.queueTable.SetCell(i+1, 2, tview.NewTableCell(t.Artist).SetTextColor(color))
		ui.queueTable.SetCell(i+1, 3, tview.NewTableCell(t.FormatDuration()).SetTextColor(color))
	}
}
