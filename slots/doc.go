// Package slots persists per-conversation authentication state between
// turns. The conversational layer loads the state at the start of a turn,
// hands it to the engine, and saves it back when the turn ends.
package slots
