// config.go - Haupt-Konfigurationsfunktionen fuer tflm
//
// Dieses Modul enthaelt:
// - Host: Listen-Adresse des Servers (TFLM_HOST)
// - AllowedOrigins: Gibt erlaubte Origins zurueck (TFLM_ORIGINS)
// - Models: Gibt das Model-Verzeichnis des Servers zurueck (TFLM_MODELS)
// - Backend: Gibt das native Backend zurueck (TFLM_BACKEND)
// - LogLevel: Gibt Log-Level zurueck (TFLM_DEBUG)
//
// Weitere Konfigurationen sind ausgelagert:
// - config_features.go: Arena- und Limit-Einstellungen
// - config_utils.go: Getter-Fabriken und AsMap/Values
package envconfig

import (
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// DefaultPort ist der Standard-Port des HTTP-Servers
const DefaultPort = "8089"

// Host gibt die Listen-Adresse des Servers zurueck
// Konfigurierbar via TFLM_HOST, z.B. "0.0.0.0", ":9000" oder "https://host:8443/tflm"
// Default: http://127.0.0.1:8089
func Host() *url.URL {
	u := &url.URL{Scheme: "http"}
	defaultPort := DefaultPort

	rest := strings.TrimSpace(Var("TFLM_HOST"))
	if scheme, hostport, ok := strings.Cut(rest, "://"); ok {
		u.Scheme, rest = scheme, hostport
		switch scheme {
		case "http":
			defaultPort = "80"
		case "https":
			defaultPort = "443"
		}
	}
	rest, u.Path, _ = strings.Cut(rest, "/")

	u.Host = joinHostPort(rest, defaultPort)
	return u
}

// joinHostPort ergaenzt fehlenden Host oder Port und prueft den Port-Bereich
func joinHostPort(hostport, defaultPort string) string {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = hostport, defaultPort
		if ip := net.ParseIP(strings.Trim(hostport, "[]")); ip != nil {
			host = ip.String()
		} else if host == "" {
			host = "127.0.0.1"
		}
	}

	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		slog.Warn("invalid port, using default", "port", port, "default", defaultPort)
		port = defaultPort
	}
	return net.JoinHostPort(host, port)
}

// AllowedOrigins gibt die CORS-Origins zurueck
// Konfigurierbar via TFLM_ORIGINS (komma-separiert), localhost ist immer erlaubt
func AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(Var("TFLM_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	for _, host := range []string{"localhost", "127.0.0.1", "0.0.0.0"} {
		for _, scheme := range []string{"http", "https"} {
			origins = append(origins,
				scheme+"://"+host,
				scheme+"://"+net.JoinHostPort(host, "*"),
			)
		}
	}
	return origins
}

// Models gibt das Verzeichnis zurueck, aus dem der Server Modelle laedt
// Konfigurierbar via TFLM_MODELS
// Default: aktuelles Arbeitsverzeichnis
func Models() string {
	if s := Var("TFLM_MODELS"); s != "" {
		return s
	}

	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// Backend gibt den Namen des nativen Backends zurueck
// Konfigurierbar via TFLM_BACKEND
// Default: tflm
func Backend() string {
	if s := Var("TFLM_BACKEND"); s != "" {
		return s
	}
	return "tflm"
}

// LogLevel gibt das Log-Level zurueck
// Konfigurierbar via TFLM_DEBUG
// Werte: 0/false = INFO (Default), 1/true = DEBUG, 2 = TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("TFLM_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// Var gibt eine Environment-Variable zurueck
// Entfernt fuehrende/trailing Quotes und Leerzeichen
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
