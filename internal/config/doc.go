// Package config handles configuration loading, parsing, and validation
// from environment variables, an optional .env file and an optional
// config.yaml. It provides one immutable Config value that is built at
// startup and passed explicitly to every component constructor.
package config
