// config.go - Haupt-Konfigurationsfunktionen fuer den Fusion-Compiler
//
// Dieses Modul enthaelt:
// - LogLevel: Gibt Log-Level zurueck (FUSER_DEBUG)
// - MaxGraphNodes: Gibt die Obergrenze fuer Knoten pro eingehendem Graph zurueck (FUSER_MAX_GRAPH_NODES)
//
// Weitere Konfigurationen sind ausgelagert:
// - config_features.go: Cache- und Scheduler-bezogene Flags
// - config_utils.go: Utility-Funktionen und AsMap/Values
package envconfig

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// LogLevel gibt das Log-Level zurueck
// Konfigurierbar via FUSER_DEBUG
// Werte: 0/false = INFO (Default), 1/true = DEBUG, 2 = TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("FUSER_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// MaxGraphNodes gibt die Obergrenze fuer die Anzahl Knoten zurueck, die ein
// einzelner eingehender Graph vor der Aufnahme in den Graph-Shape-Cache
// haben darf (ein runaway-Schutz, kein Korrektheitsmerkmal).
// Konfigurierbar via FUSER_MAX_GRAPH_NODES
// Default: 4096
func MaxGraphNodes() int {
	const defaultValue = 4096
	s := Var("FUSER_MAX_GRAPH_NODES")
	if s == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		slog.Warn("invalid FUSER_MAX_GRAPH_NODES, using default", "value", s, "default", defaultValue)
		return defaultValue
	}
	return n
}

// Var gibt eine Environment-Variable zurueck
// Entfernt fuehrende/trailing Quotes und Leerzeichen
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
