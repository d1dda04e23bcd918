// Package tools defines the tool contract and the capabilities the model may
// invoke: read_file, write_file, edit_file, search_files, execute_command.
//
// A Tool validates its own arguments and returns (string, error); the error
// path covers ordinary failures (missing file, bad arguments, non-zero exit,
// timeout) which the session converts into failure tool results for the
// model — they never unwind the conversation loop.
//
// The Registry is an ordered, name-keyed collection built once at startup
// and read-only thereafter. Truncation caps tool output before it enters
// conversation memory, and the ChangeTracker records file mutations made by
// write_file and edit_file.
package tools
