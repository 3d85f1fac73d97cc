// Package ytdlp wraps the external retrieval tool's command-line interface.
//
// Two operations are exposed: flat-playlist listings (one JSON object per
// line) and single-entry audio downloads. Both run under the caller's context
// so invocations are always bounded by a timeout; a tool that hangs is folded
// into the standard failure path rather than stalling a run.
package ytdlp
