// Package lock implements the acquisition and release protocol over a
// cache store. A lock is a key holding a random owner token with an
// expiration; acquisition is one atomic set-if-absent, optionally retried
// until a wait budget elapses. No fairness is promised among waiters:
// whichever retry lands first after a release wins.
package lock
