// Package config reads the line-oriented topology file and validates its
// entries before they reach the provisioner.
//
// Each non-comment line describes one tenant:
//
//	tenant_id, tenant_name, image_id, flavor_id, vm_count, overlay_subnet,
//	transit_vlan, transit_vlan_label, transit_subnet, dmz_subnet
//
// Lines whose first non-blank character is '#' and blank lines are skipped.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "local.conf"

// Field positions within a line.
const (
	FieldTenantID = iota
	FieldTenantName
	FieldImageID
	FieldFlavorID
	FieldVMCount
	FieldOverlaySubnet
	FieldTransitVLAN
	FieldTransitVLANLabel
	FieldTransitSubnet
	FieldDMZSubnet

	FieldCount
)

// RawEntry is one data line, split on commas with each field trimmed.
// The field count is not checked here; the validator rejects lines that
// do not have exactly FieldCount fields.
type RawEntry struct {
	Line   int
	Text   string
	Fields []string
}

// Field returns field i, or "" when the line is too short.
func (r RawEntry) Field(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return r.Fields[i]
}

// Parse splits the data lines of r. Line numbers are 1-based and count
// every physical line, including comments.
func Parse(r io.Reader) ([]RawEntry, error) {
	var entries []RawEntry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.Split(text, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		entries = append(entries, RawEntry{Line: lineNo, Text: text, Fields: parts})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading line %d: %w", lineNo+1, err)
	}
	return entries, nil
}

// ParseFile reads and splits the configuration file at path.
func ParseFile(path string) ([]RawEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return entries, nil
}
