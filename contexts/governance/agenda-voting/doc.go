// Package agendavoting implements agenda voting inside the governance
// context.
//
// The module owns the agenda lifecycle (draft, open, timed session, finished
// or cancelled), one-vote-per-user ballots, the session windows that bound
// voting, and the expiry sweep that closes agendas once their window elapses.
// Mutating operations are replay-safe through a fingerprint-keyed idempotency
// cache, and every state change emits an outbox event.
package agendavoting
