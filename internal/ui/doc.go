// Package ui renders pipeline progress in the terminal.
//
// [ProgressModel] is a bubbletea model (Elm-style Init/Update/View) that reads [tasks.ProgressUpdate] values
// from a channel until it is closed. It shows the current phase with a spinner and an overall bar from
// charmbracelet/bubbles, one byte bar per active download, and a short log of recent messages.
// Pressing q or ctrl+c invokes the cancel function given to [NewProgressModel] and keeps draining
// updates until the producer closes the channel.
//
// [Print] is the plain alternative for non-interactive output: one line per update, no byte progress.
package ui
