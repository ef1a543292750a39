// Package config handles configuration loading, parsing, and validation
// from a config file and KIOKU_ environment variables. It provides type-safe
// access to the settings needed by the stores, the scheduling policy, and the
// field generators while keeping configuration details separate from
// scheduling logic.
package config
