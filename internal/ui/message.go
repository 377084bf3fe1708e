package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moodsplit/internal/models"
	"github.com/desertthunder/moodsplit/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgClassifyComplete
	MsgSaveComplete
)

type classifyOutcome struct {
	result *models.ClassifyResult
	err    error
}

type saveOutcome struct {
	result *models.SaveResult
	err    error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// classifyCompleteMsg is the constructor for [MsgClassifyComplete]
func classifyCompleteMsg(result *models.ClassifyResult, err error) Msg {
	return Msg{kind: MsgClassifyComplete, data: classifyOutcome{result, err}}
}

// saveCompleteMsg is the constructor for [MsgSaveComplete]
func saveCompleteMsg(result *models.SaveResult, err error) Msg {
	return Msg{kind: MsgSaveComplete, data: saveOutcome{result, err}}
}
