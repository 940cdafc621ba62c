// Package commands defines the tapoctl CLI, a one-shot client for a single
// plug.
//
// Commands
//
//   - on     Switch the plug on
//   - off    Switch the plug off
//   - info   Print the device info
//
// Every command opens a new session (handshake and login) and drops it on
// exit. The email and password can also be taken from TAPO_EMAIL and
// TAPO_PASSWORD.
package commands
