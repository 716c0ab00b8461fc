// Package app contains the orchestrator. It loads a project, runs the
// bootstrap build, then keeps the watch rules and the development server
// running until the context is cancelled. It is decoupled from any specific
// entrypoint like a CLI.
package app
