// Package events carries generation lifecycle events from the task runner to
// interested components such as the metrics recorder.
//
// The primary components are:
// - GenerationEvent: a submitted, duplicate, completed, cancelled or failed generation
// - EventHandler: interface for components that can handle events
// - EventEmitter: interface for components that can emit events
package events
