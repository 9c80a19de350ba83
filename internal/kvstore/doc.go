// Package kvstore provides a BadgerDB-backed implementation of the change
// log and snapshot storage.
//
// It stores the same records as the SQLite store, laid out as ordered keys:
//
//	seq                                           last assigned change id
//	snapseq                                       last assigned snapshot id
//	state/<state>                                 registry of known states
//	change/<state>/<id %020d>                     one change record
//	snapshot/<state>/<created %020d>/<id %020d>   one snapshot record
//
// State names are path-escaped inside keys so that a name containing "/"
// cannot collide with another state's prefix. Zero-padded numbers make
// lexicographic key order equal numeric order, so a forward prefix scan
// yields changes in id order and a reverse scan yields the newest snapshot
// first.
//
// Every append runs in one read-write transaction that also advances the
// id counter, so a batch is committed entirely or not at all.
package kvstore
