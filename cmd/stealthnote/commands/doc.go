// Package commands defines the stealthnote CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - register [provider]  Sign in and prove membership of your organization
//   - refresh              Replace the key and re-register with the same provider
//   - reset                Forget the key and proof
//   - whoami               Print the session's state, group and commitment
//   - post <text>          Sign a message and post it to the board
//   - list                 List board messages
//   - verify <file>        Check a saved message artifact locally
//
// # Implementation
//
// The root command reads STEALTHNOTE_* variables into app.Config, applies
// flag overrides and builds the dependency graph before any subcommand
// runs. Signing in uses tokensource.Prompt unless --token is given.
package commands
