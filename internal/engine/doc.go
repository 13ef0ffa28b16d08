// Package engine contains the game loop and simulation logic.
//
// Session is the synchronous core: an entity store plus the decay, production
// and economy systems that mutate it. Engine wraps a Session in a single
// goroutine fed by a frame Ticker and a request queue.
//
// ARCHITECTURAL RULE: nothing outside the engine goroutine touches a Session
// that an Engine owns. Transports go through Submit and Snapshot.
package engine
