// Package config provides the configuration of dupcheck: the workflow API
// connection, pipeline tuning, the HTTP server, and the run history store.
//
// Values are layered, lowest precedence first: built-in defaults, the YAML
// configuration file (.dupcheck), a .env file, process environment
// variables, and finally command-line flags applied by the caller.
package config
