package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/playcache/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
//
// gen identifies the sync pass that produced the message; messages from earlier passes are dropped.
type Msg struct {
	kind MsgKind
	gen  int
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSyncState MsgKind = iota
	MsgSyncClosed
	MsgSlideTick
)

// stateSource carries a state along with the command that reads the one after it.
type stateSource struct {
	state models.SyncState
	next  tea.Cmd
}

// syncStateMsg is the constructor for [MsgSyncState]
func syncStateMsg(gen int, state models.SyncState, next tea.Cmd) Msg {
	return Msg{kind: MsgSyncState, gen: gen, data: stateSource{state: state, next: next}}
}

// syncClosedMsg is the constructor for [MsgSyncClosed]
func syncClosedMsg(gen int) Msg {
	return Msg{kind: MsgSyncClosed, gen: gen}
}

// slideTickMsg is the constructor for [MsgSlideTick]
func slideTickMsg(gen int) Msg {
	return Msg{kind: MsgSlideTick, gen: gen}
}

func (m Msg) state() models.SyncState {
	s, _ := m.data.(stateSource)
	return s.state
}

// next returns the command that waits for the following state, or nil.
func (m Msg) next() tea.Cmd {
	s, _ := m.data.(stateSource)
	return s.next
}
