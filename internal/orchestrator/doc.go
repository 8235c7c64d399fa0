// Package orchestrator runs one flashcard generation run end to end.
//
// Without retrieval the orchestrator stuffs every document into one batch
// request (traditional mode). With retrieval it indexes the documents that
// are not indexed yet, extracts topics, and produces one card per topic from
// the chunks most relevant to that topic (RAG mode). Progress is reported as
// a non-decreasing percentage with a status line at every phase boundary.
//
// Failures of a single topic are logged and skipped. An unreachable
// retrieval service aborts the run, and UserMessage turns that and other
// hard failures into text that tells the user what to fix.
package orchestrator
