// Package common contains shared constants and sentinel errors used across
// rollcall components.
package common

// EnvPrefix prefixes every environment variable read by the configs.
const EnvPrefix = "ROLLCALL_"
