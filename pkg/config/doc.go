// Package config loads application configuration from environment
// variables. All variables use the BENCHTOP_ prefix.
package config
