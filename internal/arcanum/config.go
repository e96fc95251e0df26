// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package arcanum

import (
	"crypto"
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sapcc/go-api-declarations/bininfo"
	"github.com/sapcc/go-bits/easypg"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/must"
	"github.com/sapcc/go-bits/osext"
)

// Configuration contains all configuration values that are not specific to a
// certain driver.
type Configuration struct {
	APIPublicHostname string
	// JWTIssuerKeys holds the current issuer key and, during key rotation,
	// the previous one. Tokens are accepted if any of these keys verifies
	// them.
	JWTIssuerKeys []crypto.PrivateKey
}

var (
	looksLikePEMRx    = regexp.MustCompile(`^\s*-----\s*BEGIN`)
	stripWhitespaceRx = regexp.MustCompile(`(?m)^\s*|\s*$`)
)

// ParseIssuerKey parses the contents of the ARCANUM_ISSUER_KEY variable.
func ParseIssuerKey(in string) (crypto.PrivateKey, error) {
	// if it looks like PEM, it's probably PEM; otherwise it's a filename
	var buf []byte
	if looksLikePEMRx.MatchString(in) {
		buf = []byte(in)
	} else {
		var err error
		buf, err = os.ReadFile(in)
		if err != nil {
			return nil, err
		}
	}
	buf = stripWhitespaceRx.ReplaceAll(buf, nil)

	// we support either ed25519 keys (preferred) or RSA keys (legacy)
	ed25519Key, err1 := jwt.ParseEdPrivateKeyFromPEM(buf)
	if err1 == nil {
		return ed25519Key, nil
	}
	rsaKey, err2 := jwt.ParseRSAPrivateKeyFromPEM(buf)
	if err2 == nil {
		return rsaKey, nil
	}
	return nil, fmt.Errorf("neither an ed25519 private key (%q) nor an RSA private key (%q)", err1.Error(), err2.Error())
}

// ParseConfiguration obtains a Configuration instance from the corresponding
// environment variables. Aborts on error.
func ParseConfiguration() Configuration {
	cfg := Configuration{
		APIPublicHostname: osext.MustGetenv("ARCANUM_API_PUBLIC_FQDN"),
	}

	key, err := ParseIssuerKey(osext.MustGetenv("ARCANUM_ISSUER_KEY"))
	if err != nil {
		logg.Fatal("failed to read ARCANUM_ISSUER_KEY: %s", err.Error())
	}
	cfg.JWTIssuerKeys = []crypto.PrivateKey{key}
	if prevKeyStr := os.Getenv("ARCANUM_PREVIOUS_ISSUER_KEY"); prevKeyStr != "" {
		prevKey, err := ParseIssuerKey(prevKeyStr)
		if err != nil {
			logg.Fatal("failed to read ARCANUM_PREVIOUS_ISSUER_KEY: %s", err.Error())
		}
		cfg.JWTIssuerKeys = append(cfg.JWTIssuerKeys, prevKey)
	}

	return cfg
}

// GetDatabaseURLFromEnvironment reads the ARCANUM_DB_* environment variables.
func GetDatabaseURLFromEnvironment() (dbURL url.URL, dbName string) {
	dbName = osext.GetenvOrDefault("ARCANUM_DB_NAME", "arcanum")
	return must.Return(easypg.URLFrom(easypg.URLParts{
		HostName:          osext.GetenvOrDefault("ARCANUM_DB_HOSTNAME", "localhost"),
		Port:              osext.GetenvOrDefault("ARCANUM_DB_PORT", "5432"),
		UserName:          osext.GetenvOrDefault("ARCANUM_DB_USERNAME", "postgres"),
		Password:          os.Getenv("ARCANUM_DB_PASSWORD"),
		ConnectionOptions: os.Getenv("ARCANUM_DB_CONNECTION_OPTIONS"),
		DatabaseName:      dbName,
	})), dbName
}

// GetRedisOptions returns a redis.Options by getting the required parameters
// from the environment variables with the given prefix. Returns nil if no
// Redis hostname is configured; Redis is optional.
func GetRedisOptions(prefix string) (*redis.Options, error) {
	host := os.Getenv(prefix + "_HOSTNAME")
	if host == "" {
		return nil, nil
	}
	port := osext.GetenvOrDefault(prefix+"_PORT", "6379")
	dbNum := osext.GetenvOrDefault(prefix+"_DB_NUM", "0")
	db, err := strconv.Atoi(dbNum)
	if err != nil {
		return nil, fmt.Errorf("invalid value for %s: %q", prefix+"_DB_NUM", dbNum)
	}

	return &redis.Options{
		Network:    "tcp",
		Password:   os.Getenv(prefix + "_PASSWORD"),
		Addr:       net.JoinHostPort(host, port),
		ClientName: bininfo.Component(),
		DB:         db,
	}, nil
}
