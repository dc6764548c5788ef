// Package config loads the runtime configuration of the hive binary and builds the
// database connections, the event store and the OpenTelemetry providers from it.
//
// Values are resolved in this order, first match wins:
//
//  1. command-line flags
//  2. environment variables with the HIVE_ prefix (HIVE_HTTP_ADDR, HIVE_POSTGRES_DSN, ...)
//  3. .env.local and .env in the working directory
//  4. the YAML file named by --config, or ./.hive.yaml
//  5. built-in defaults
package config
