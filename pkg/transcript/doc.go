// Package transcript implements the client-side conversation store.
//
// The store folds relayed chunks into the transcript with merge-or-append
// semantics, persists itself through a kvstore.Store after every mutation,
// and guards against late chunks after Clear with a generation counter.
package transcript
