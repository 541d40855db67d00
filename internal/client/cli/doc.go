// Package cli provides the interactive ZenChat command-line client.
//
// It wires configuration, local credential storage, the backend API client,
// the Google sign-in flow, and an interactive REPL. Typical flow: restore a
// persisted session silently, then execute user commands.
//
// Key features:
//   - login / signup / google sign-in / logout
//   - list, open, new: navigate and create chats
//   - send, attach, title, delete: work inside a chat
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
package cli
