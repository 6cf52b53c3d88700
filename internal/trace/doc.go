// Package trace decodes and encodes binary lock-acquisition trace files.
//
// A trace file is written by an instrumented program, one file per
// thread. It starts with a header (creation time, thread number, pid)
// followed by a stream of records:
//
//	int32 marker
//	  -1        creation record: thr, instance, file\0, line
//	  otherwise order record with prev.thr = marker:
//	            prev.instance, now.thr, now.instance, file\0, line
//
// All integers are little-endian int32 except the header time, which is
// int64. Strings are NUL-terminated and shorter than 1024 bytes.
//
// An order record asserts that lock prev was held at the moment lock now
// was acquired at file:line. Files from one run share a pid and a
// creation-time window; HeaderSet validates that before files are merged
// into one graph.
//
// Decoding never terminates the process. Malformed input surfaces as a
// FormatError and the driver decides what to do with it.
package trace
