// Package session stores conversation states between runs so that a chat can
// continue across several utterances.
//
// Store is the contract used by the runner; InMemoryStore is the bundled
// implementation. Add additional backends in sub-packages without changing
// any calling code: only the wiring layer decides which implementation to
// instantiate.
package session
