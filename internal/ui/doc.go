// Package ui implements the live progress view for `freshlist update --tui` using bubbletea's Elm architecture.
//
// The TUI has three views:
//  1. [PassView] : spinner, phase badge, progress bar and the latest per-artist fetch lines
//  2. [ResultView] : pass summary with failed artists
//  3. [TrackListView] : browsable list of the playlist tracks with their remaining retention
//
// Progress updates flow through a channel from the engine and are relayed one message at a time.
// The package also exports lipgloss helpers ([Success], [Warning], [Failure], [Title], [Muted]) for plain CLI output.
package ui
