// Package notifications delivers severity-tagged push messages for pipeline
// events over ntfy. Repeated alerts with the same title are rate limited by a
// configurable dedup window; insistent sends bypass the window and are
// delivered with raised priority. When no topic is configured every method is
// a silent no-op so callers never need nil checks.
package notifications
