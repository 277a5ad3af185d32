package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/moehandi/envconf"
)

// Credentials holds secrets mounted as files, the way container
// orchestrators expose them.
type Credentials struct {
	Username string `env:"APP_USER"`
	Password string `env:"APP_PASS,file"`
	TLSCert  []byte `env:"APP_TLS_CERT,file"`
}

func main() {
	dir, err := os.MkdirTemp("", "secrets")
	if err != nil {
		log.Fatalf("temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	// Simulate mounted secrets
	pass := filepath.Join(dir, "password")
	cert := filepath.Join(dir, "tls.crt")
	os.WriteFile(pass, []byte("super-secret"), 0o600)
	os.WriteFile(cert, []byte("-----BEGIN CERTIFICATE-----\n"), 0o600)

	os.Setenv("APP_USER", "service")
	os.Setenv("APP_PASS_FILE", pass)
	os.Setenv("APP_TLS_CERT_FILE", cert)

	var creds Credentials
	if err := envconf.Load(&creds); err != nil {
		log.Fatalf("load config: %v", err)
	}

	log.Printf("user %s, password %d bytes, cert %d bytes", creds.Username, len(creds.Password), len(creds.TLSCert))
}
