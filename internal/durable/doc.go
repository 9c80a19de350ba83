// Package durable binds an observed object graph to a change log and a
// snapshot table for one named state.
//
// A State resumes its value from the newest snapshot plus the log entries
// recorded after it, appends each mutation batch in one transaction, and
// materializes snapshots according to a Policy. The log is the source of
// truth; snapshots only bound the cost of resume.
//
// A State assumes a single cooperative writer. It does no locking of its
// own and is not safe for unsynchronized concurrent writers against the
// same state name, in this process or any other.
package durable
