// Package llmjson recovers JSON values from free-form language model output.
//
// Models are asked for bare JSON but routinely wrap it in markdown fences,
// prefix it with prose or append commentary. Decode applies a fixed recovery
// ladder: strict parse of the trimmed text, strict parse after stripping code
// fences, then every balanced bracketed region of the requested shape in
// order of appearance. The first candidate accepted by the caller's Matcher
// wins; if none qualifies the call fails with ErrNoJSON.
package llmjson
