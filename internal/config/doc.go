// Package config holds the settings of the lmstfy command line tool:
// built-in defaults, an optional JSON file and LMSTFY_* environment
// overrides, applied in that order.
package config
