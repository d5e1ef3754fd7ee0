package ui

import (
	"fmt"
	"strings"

	"github.com/pipetune/pipetune/internal/player"
)

const volumeBarWidth = 10

func (ui *UI) refreshFooter(state player.State) {
	ui.footerView.SetText(ui.renderNowPlaying(state))

	ui.mu.Lock()
	status := ui.status
	ui.mu.Unlock()

	if status != "" {
		ui.statusView.SetText(fmt.Sprintf(" [%s]%s[-]", ui.colors.mutedVolume.String(), status))
	} else {
		ui.statusView.SetText(ui.renderHelpLine())
	}
}

func (ui *UI) renderNowPlaying(state player.State) string {
	var b strings.Builder

	switch state.Status() {
	case player.StatusIdle:
		fmt.Fprintf(&b, " [%s]Nothing playing - press '/' to search[-]", ui.colors.helpFg.String())
		return b.String()
	case player.StatusPlaying:
		fmt.Fprintf(&b, " [%s]▶[-] ", ui.colors.highlight.String())
	case player.StatusPaused:
		fmt.Fprintf(&b, " [%s]⏸[-] ", ui.colors.helpFg.String())
	}

	fmt.Fprintf(&b, "[%s]%s[-]", ui.colors.foreground.String(), state.CurrentTrack.DisplayTitle())

	if origin, bitrate := ui.svc.NowPlayingSource(); origin != "" {
		if bitrate > 0 {
			fmt.Fprintf(&b, " [%s](%s %dkbps)[-]", ui.colors.helpFg.String(), origin, bitrate)
		} else {
			fmt.Fprintf(&b, " [%s](%s)[-]", ui.colors.helpFg.String(), origin)
		}
	}

	if state.Duration > 0 {
		fmt.Fprintf(&b, "  [%s]%s / %s[-]",
			ui.colors.helpFg.String(),
			formatSeconds(state.CurrentTime),
			formatSeconds(state.Duration))
	}

	b.WriteString("  " + ui.renderVolumeBar(state))

	for _, flag := range ui.renderFlags(state) {
		fmt.Fprintf(&b, "  [%s]%s[-]", ui.colors.highlight.String(), flag)
	}

	return b.String()
}

func (ui *UI) renderVolumeBar(state player.State) string {
	filled := state.Volume * volumeBarWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", volumeBarWidth-filled)

	color := ui.colors.foreground
	if state.IsMuted {
		color = ui.colors.mutedVolume
	}

	return fmt.Sprintf("[%s]%s %3d%%[-]", color.String(), bar, state.Volume)
}

func (ui *UI) renderFlags(state player.State) []string {
	var flags []string
	if state.IsShuffle {
		flags = append(flags, "SHUF")
	}
	if state.IsRepeat {
		flags = append(flags, "REP")
	}
	if state.IsMuted {
		flags = append(flags, "MUTE")
	}
	return flags
}

func (ui *UI) renderHelpLine() string {
	hotkey := ui.colors.helpHotkey.String()
	text := ui.colors.helpFg.String()

	keys := [][2]string{
		{"/", "search"},
		{"space", "pause"},
		{"n/p", "next/prev"},
		{"s", "shuffle"},
		{"r", "repeat"},
		{"i", "switch source"},
		{"d", "remove"},
		{"x", "clear"},
		{"q", "quit"},
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("[%s]%s[-][%s] %s[-]", hotkey, k[0], text, k[1]))
	}
	return " " + strings.Join(parts, "  ")
}

func formatSeconds(seconds float64) string {
	total := int(seconds)
	m := total / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d", m, s)
}
