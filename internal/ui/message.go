package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/freshlist/internal/tasks"
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
	MsgPassComplete
)

type passOutcome struct {
	result *tasks.PassResult
	err    error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// passCompleteMsg is the constructor for [MsgPassComplete]
func passCompleteMsg(result *tasks.PassResult, err error) Msg {
	return Msg{kind: MsgPassComplete, data: passOutcome{result: result, err: err}}
}
