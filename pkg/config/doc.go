// Package config provides configuration management for chatrelay.
//
// One YAML file configures both the relay server and the chat client.
// Values are applied in the following order (later overrides earlier):
//
//  1. Values from the YAML file
//  2. Default values for anything left unset (defaults.go)
//  3. CHATRELAY_* environment variables
//  4. Validation (fails fast if invalid)
//
// Environment variables follow CHATRELAY_SECTION_FIELD, for example:
//
//   - CHATRELAY_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - CHATRELAY_MODEL_PROVIDER overrides model.provider
//   - CHATRELAY_CLIENT_HISTORY_BACKEND overrides client.history.backend
//   - CHATRELAY_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Load publishes a configuration for GetConfig only once it has been
// validated and finished, and a failed reload keeps the previous one.
// FileWatcher observes the configuration file so the server can apply a
// reloaded configuration without restarting.
package config
