// Package reflection improves generated flashcards without human review.
//
// Engine runs the per-topic loop: draft one card strictly scoped to a
// topic, critique it against five fixed criteria, accept it when the
// critique is positive and refine it otherwise, for a bounded number of
// iterations. It always yields exactly one card per topic; when the model
// fails entirely a diagnostic fallback card takes the draft's place.
//
// BatchReflector is the coarse-grained alternative that evaluates, critiques
// and regenerates a whole batch until it is good enough or stops changing.
// The two strategies are independent and selected by configuration.
package reflection
