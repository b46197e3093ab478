// Package config provides configuration parsing for the silo CLI.
//
// The configuration is stored in silo.json or silo.yaml at the project root.
// This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "log": {
//	    "level": "debug",
//	    "format": "json"
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "game",
//	    "addr": "localhost:9464"
//	  },
//	  "tracing": {
//	    "enabled": false
//	  },
//	  "bench": {
//	    "profile": "stress",
//	    "subscribers": 16
//	  }
//	}
//
// The same structure in YAML:
//
//	log:
//	  level: debug
//	metrics:
//	  enabled: true
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	logger := cfg.Logger(os.Stderr)
package config
