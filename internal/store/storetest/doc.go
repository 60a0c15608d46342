// Package storetest holds a behavioural test suite shared by every
// task.StatusStore implementation.
package storetest
