// Package events decouples the components of a generation run. The HTTP
// layer emits a request event that the task package turns into a queued
// task; the task runner emits a finished event that metrics and other
// observers consume.
package events
