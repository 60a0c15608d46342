// Package redis provides a Redis-backed implementation of task.StatusStore.
//
// Records are stored as JSON strings under "<prefix>:record:<id>". Sorted sets
// scored by id index all records, incomplete records and records per spec key;
// a sorted set scored by expiration time in milliseconds drives DeleteExpired.
package redis
