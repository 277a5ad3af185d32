package main

import (
	"log"

	"github.com/moehandi/envconf"
)

// Configuration models the settings used by the basic example.
type Configuration struct {
	Server  string `envDefault:"127.0.0.1"`
	Port    int    `envDefault:"8080"`
	Debug   bool   `env:",default"`
	DBURL   string `env:"DATABASE_URL"`
	MaxConn uint32 `env:"MAX_CONNECTIONS" envDefault:"10"`
}

func main() {
	var cfg Configuration
	if err := envconf.Load(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	log.Printf("server %s:%d (debug=%v)", cfg.Server, cfg.Port, cfg.Debug)
	log.Printf("database %s (max %d connections)", cfg.DBURL, cfg.MaxConn)
}
