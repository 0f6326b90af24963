// Package config loads runtime configuration for the rollcall capture
// terminal.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. ROLLCALL_* environment variables.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string     address:port of the ledger gRPC endpoint
//	-i int        online status check interval (seconds)
//	-t duration   ledger request timeout
//	-d string     local database file
//	-z string     time zone for recorded times
//	-l string     log level
//
// Environment
//
//	ROLLCALL_SERVER_ADDR, ROLLCALL_ONLINE_CHECK_INTERVAL,
//	ROLLCALL_REQUEST_TIMEOUT, ROLLCALL_DATABASE_PATH, ROLLCALL_TIME_ZONE,
//	ROLLCALL_LOG_LEVEL, ROLLCALL_LOG_FORMAT
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "request_timeout": "5s",
//	  "database_path": "rollcall.db",
//	  "time_zone": "Asia/Manila",
//	  "log_level": "info"
//	}
package config
