// Package config loads, validates, and normalizes lapse configuration from a
// TOML file. All path fields are expanded (including ~) and made absolute
// before any component sees them; components receive the resulting Config by
// value injection rather than reading ambient state.
package config
