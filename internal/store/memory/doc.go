// Package memory provides an in-process implementation of task.StatusStore.
// Records live only as long as the process; it is the default store driver.
package memory
