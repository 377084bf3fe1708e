// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI follows a single classification run:
//  1. [ClassifyView] : Live batch progress while the playlist is classified
//  2. [ResultView] : Label distribution and a filterable list of labelled tracks
//  3. [ConfirmSaveView] : Confirm writing one playlist per label
//  4. [SavingView] / [SavedView] : Playlist creation and its outcome
//
// Progress updates flow through a buffered channel that the engine never blocks on.
// The run itself executes inside a tea.Cmd, so its result reaches the [Model] only as a message.
package ui
