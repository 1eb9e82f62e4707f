// Package session owns the client-side session: the state machine around
// sign-in, sign-up and logout, the token handed to the transport, and the
// merging of server-reported user data into the local UserRecord.
//
// Every network call is tagged with the session generation at dispatch time.
// A reply is applied only if the generation is unchanged when it arrives, so
// nothing that was in flight during a logout can bring the old session back.
package session
