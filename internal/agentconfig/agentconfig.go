// Package agentconfig rewrites the node agent's INI configuration.
//
// Scalar keys are replaced and list keys are unioned, so applying the same
// Settings twice yields the same file.
package agentconfig

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/ini.v1"
)

// Section and keys the bring-up manages.
const (
	SectionGeneral         = "General"
	KeyServerHost          = "server_host"
	KeyListeningIP         = "listening_ip"
	KeyListeningHostname   = "listening_hostname"
	KeyReportedHostname    = "reported_hostname"
	KeyFilesystemWhitelist = "local_filesystem_whitelist"
)

const listDelimiter = ","

// Settings are the values written into the General section. Empty scalars
// leave the existing value untouched.
type Settings struct {
	ServerHost          string
	ListeningIP         string
	ListeningHostname   string
	ReportedHostname    string
	FilesystemWhitelist []string
}

// Apply returns data with settings merged in. data is not modified.
func Apply(data []byte, s Settings) ([]byte, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		PreserveSurroundedQuote: true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse agent config: %w", err)
	}

	general := cfg.Section(SectionGeneral)
	for _, kv := range [][2]string{
		{KeyServerHost, s.ServerHost},
		{KeyListeningIP, s.ListeningIP},
		{KeyListeningHostname, s.ListeningHostname},
		{KeyReportedHostname, s.ReportedHostname},
	} {
		if kv[1] == "" {
			continue
		}
		general.Key(kv[0]).SetValue(kv[1])
	}

	if len(s.FilesystemWhitelist) > 0 {
		key := general.Key(KeyFilesystemWhitelist)
		current := key.Strings(listDelimiter)
		for _, fs := range s.FilesystemWhitelist {
			if !slices.Contains(current, fs) {
				current = append(current, fs)
			}
		}
		key.SetValue(strings.Join(current, listDelimiter))
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to render agent config: %w", err)
	}
	return buf.Bytes(), nil
}

// Get returns the value of key in the General section, or "" if absent.
func Get(data []byte, key string) (string, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, data)
	if err != nil {
		return "", fmt.Errorf("failed to parse agent config: %w", err)
	}
	sec, err := cfg.GetSection(SectionGeneral)
	if err != nil {
		return "", nil
	}
	if !sec.HasKey(key) {
		return "", nil
	}
	return sec.Key(key).String(), nil
}
