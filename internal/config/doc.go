// Package config provides configuration parsing for Firebolt projects.
//
// The configuration lives at the project root in one of:
//
//	firebolt.json
//	firebolt.toml
//	firebolt.yaml (or firebolt.yml)
//
// The first file found in that order wins. All formats share one schema:
//
//	{
//	  "name": "shop",
//	  "routes": "app/routes",
//	  "dev": {
//	    "port": 3000,
//	    "host": "localhost",
//	    "watch": ["app", "public"]
//	  },
//	  "build": {
//	    "output": "dist",
//	    "main": "./cmd/server",
//	    "publish": {"bucket": "assets", "prefix": "shop/", "region": "eu-west-1"}
//	  },
//	  "metadata": {"maxAge": "30s"}
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Port:", cfg.Dev.Port)
package config
