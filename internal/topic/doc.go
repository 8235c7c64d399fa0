// Package topic extracts the short topics a generation run covers, one
// flashcard per topic.
//
// The caller chooses the mode. In query mode the extractor decomposes the
// learner's own question into sub-topics; in corpus mode it samples the
// first indexed chunks and asks for their dominant topics. Extraction never
// fails: any backend error or unusable answer yields the placeholders
// "Topic 1" to "Topic N" so a degraded run can still proceed.
package topic
