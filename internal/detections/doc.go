// Package detections maintains the optional SQLite index of persisted
// detection events. The index exists for operators: it answers "what did
// the pipeline save, when, from which device" without crawling the output
// directory. The acquisition loop treats every store write as best-effort;
// an unavailable index never stalls or fails frame processing.
package detections
