// Package config handles configuration loading for the chatbot server.
//
// Configuration is loaded from a YAML file with ${VAR_NAME} environment
// variable expansion and sensible defaults. A missing file is fine: the two
// required settings, the provider API key and the database path, can come
// entirely from the OPENAI_API_KEY and DATABASE_URL environment variables.
// The process refuses to start when either is absent.
package config
