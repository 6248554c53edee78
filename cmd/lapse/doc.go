// Package main hosts the lapse CLI entrypoint and command graph.
//
// The Cobra-based command tree covers installation (setup, change-interval),
// the scheduled pipeline entrypoints (capture, end_of_day_sync,
// create_daily_montage, cleanup_directories), reporting (count, status), and
// the hardware self-tests. It centralizes configuration resolution and
// structured logging setup so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
