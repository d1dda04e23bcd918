// Package session orchestrates the conversation between the user, the model
// and the tool set. It owns the conversation memory, drives the
// model/tool round-trip loop, and reports progress to a pluggable
// EventHandler so the rendering layer stays out of the loop.
package session
