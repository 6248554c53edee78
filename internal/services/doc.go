// Package services holds the shared plumbing for everything lapse runs as an
// external process: error classification sentinels, the runCommand
// indirection used by tests, and the retry policy applied to flaky
// operations such as camera capture.
//
// Tool-specific clients live in subpackages (camera, rclone, imaging,
// mailer) and follow the same shape: a small struct wrapping a binary name,
// constructed with options, invoked with a context that bounds the external
// call.
package services
