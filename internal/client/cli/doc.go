// Package cli is the interactive smartaccess client.
//
// It wires configuration, the local session database, the HTTP transport and
// the session controller, then runs a line-oriented REPL:
//
//	register   create an account (signs in when the server issues a token)
//	login      sign in with email and password
//	status     refresh and show the signed-in resident
//	verify     wait in the background until the account is verified
//	profile    edit name, phone and bio
//	qr [type] [guest]  request an entry QR code
//	logout     end the session
//	exit       leave
//
// A persisted session is restored on start. App.Run blocks until the user
// exits or the context is cancelled.
package cli
