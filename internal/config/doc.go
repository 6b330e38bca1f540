// Package config defines settings used by the wake-engine binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Every field has a usable default, so the daemon starts without a settings
// file; Validate fills defaults in place.
package config
