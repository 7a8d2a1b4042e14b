// Package config loads reaxar runtime configuration.
//
// Configuration is read from reaxar.toml or reaxar.json in the project
// directory (TOML wins when both exist), then overridden by REAXAR_*
// environment variables. A .env file next to the config file is read as a
// fallback source for those variables; real environment variables win.
//
// # Configuration File Structure
//
//	{
//	  "log": {
//	    "level": "info",
//	    "format": "text",
//	    "file": "reaxar.log"
//	  },
//	  "inspector": {
//	    "addr": "127.0.0.1:7070"
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "reaxar"
//	  },
//	  "cell": {
//	    "maxNotifyDepth": 64
//	  },
//	  "snapshot": {
//	    "dir": "snapshots",
//	    "bucket": "my-bucket",
//	    "prefix": "reaxar/",
//	    "region": "us-east-1"
//	  }
//	}
//
// The same structure in TOML uses snake_case keys:
//
//	[cell]
//	max_notify_depth = 64
//
// # Environment Overrides
//
//	REAXAR_LOG_LEVEL, REAXAR_LOG_FORMAT, REAXAR_LOG_FILE,
//	REAXAR_INSPECTOR_ADDR, REAXAR_METRICS_ENABLED, REAXAR_METRICS_NAMESPACE,
//	REAXAR_MAX_NOTIFY_DEPTH, REAXAR_SNAPSHOT_DIR, REAXAR_SNAPSHOT_BUCKET,
//	REAXAR_SNAPSHOT_PREFIX, REAXAR_SNAPSHOT_REGION, REAXAR_SNAPSHOT_ENDPOINT
package config
