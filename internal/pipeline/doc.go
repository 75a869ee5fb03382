// Package pipeline drives jobs through the backend.
//
// The Coordinator owns submission: it plans a job's tasks into backend
// operations (fusing aspect-ratio fix and audio normalization into one
// combined request when both are present), submits them in task order, and
// waits for each to finish before submitting the next. The Aggregator is
// the other half of the loop: it consumes bus events, applies them to the
// store, kicks off video-path refreshes after relocating tasks complete,
// and pushes terminal notifications.
//
// Jobs are independent; only a job's own tasks are sequenced. In batch
// mode every operation is submitted up front and ordering is left to the
// backend queue, with resolution purely event-driven.
package pipeline
