// Package digest builds subscriber news digests.
//
// A Pipeline fans out over the candidate articles for a topic, extracting and
// summarizing each one independently; a failed article never affects its
// siblings. A Generator runs the pipeline for one subscriber and persists the
// result. The on-demand Service puts a cooldown Guard and a deadline in front
// of the Generator, and Batch runs it for every subscriber with bounded
// parallelism.
package digest
