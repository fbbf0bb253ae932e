// Package events provides a lightweight in-process event mechanism that
// decouples services from the task dispatcher. A service emits a
// DispatchEvent after its transaction commits; a registered handler turns
// the event into remote work.
package events
