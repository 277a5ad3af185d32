package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/moehandi/envconf"
)

// Database is decoded from a structured document held in one variable.
type Database struct {
	Host     string `json:"host" toml:"host"`
	Port     int    `json:"port" toml:"port"`
	Username string `json:"username" toml:"username"`
}

// AppConfig demonstrates the named converters.
type AppConfig struct {
	Primary   Database          `env:",conv=toml"`
	Replica   Database          `env:",conv=yaml"`
	Labels    map[string]string `env:",conv=json"`
	Hosts     []string          `env:"ALLOWED_HOSTS,conv=list"`
	RetryWait time.Duration     `env:",conv=secs"`
}

func main() {
	os.Setenv("PRIMARY", "host = \"db-1\"\nport = 5432\nusername = \"admin\"\n")
	os.Setenv("REPLICA", "host: db-2\nport: 5433\nusername: reader\n")
	os.Setenv("LABELS", `{"team":"core","tier":"gold"}`)
	os.Setenv("ALLOWED_HOSTS", "localhost, example.com")
	os.Setenv("RETRY_WAIT", "15")

	secs := envconf.ConverterFunc(func(s string) (time.Duration, error) {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		return time.Duration(n) * time.Second, err
	})

	var cfg AppConfig
	if err := envconf.Load(&cfg, envconf.WithConverter("secs", secs)); err != nil {
		log.Fatalf("load config: %v", err)
	}

	log.Printf("primary %s:%d (%s)", cfg.Primary.Host, cfg.Primary.Port, cfg.Primary.Username)
	log.Printf("replica %s:%d (%s)", cfg.Replica.Host, cfg.Replica.Port, cfg.Replica.Username)
	log.Printf("labels: %#v hosts: %v retry: %s", cfg.Labels, cfg.Hosts, cfg.RetryWait)
}
