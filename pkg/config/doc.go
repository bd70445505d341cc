// Package config loads the soapdemo configuration.
//
// Values are layered, later layers winning:
//
//  1. built-in defaults (Default)
//  2. a YAML file (--config, SOAPDEMO_CONFIG, or ./soapdemo.yaml)
//  3. a dotenv file (./.env), never overriding real environment variables
//  4. SOAPDEMO_* environment variables
//  5. command line flags, applied by the cli package
//
// Config.Sources records which layer set each key.
//
// Example file:
//
//	server:
//	  port: 8787
//	  admin_port: 8788
//	  public_url: https://users.example.com
//	  read_timeout: 30s
//	log:
//	  level: debug
//	  format: json
//	seed:
//	  - id: 1
//	    username: admin
//	    email: admin@example.com
//	    created_at: 2024-01-01T00:00:00Z
package config
