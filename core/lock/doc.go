// Package lock provides the run lock that keeps two sync runs from reconciling at once.
//
// The Redis locker stores a random token with SET NX PX and releases it with a
// compare-and-delete script, so a run whose lock expired cannot release the lock of the next
// run. When Redis is disabled the Noop locker is used and runs are serialized only by the
// caller.
package lock
