// Package chrony renders and inspects the chrony daemon: time source
// parsing, configuration file rendering, on-disk state management and
// chronyc report parsing.
package chrony

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/chrony-operator/internal/errdefs"
)

// Transport is the wire transport of a time source.
type Transport string

const (
	// TransportPlain is classic NTP (udp/123).
	TransportPlain Transport = "ntp"
	// TransportSecure is NTS-protected NTP.
	TransportSecure Transport = "nts"

	defaultNTPPort = 123
	defaultNTSPort = 4460
)

type optionKind int

const (
	kindBool optionKind = iota
	kindInt
	kindFloat
	kindString
)

// poolOptions is the whitelist of chrony pool directive options accepted from
// source URLs, with the value kind each expects. The reserved "nts" option is
// deliberately absent: it is derived from the URL scheme, never user-settable.
// See https://chrony-project.org/doc/4.5/chrony.conf.html
//
//nolint:gochecknoglobals // static whitelist
var poolOptions = map[string]optionKind{
	"asymmetry":        kindFloat,
	"auto_offline":     kindBool,
	"burst":            kindBool,
	"certset":          kindString,
	"extfield":         kindString,
	"filter":           kindInt,
	"iburst":           kindBool,
	"key":              kindString,
	"maxdelay":         kindFloat,
	"maxdelaydevratio": kindFloat,
	"maxdelayquant":    kindFloat,
	"maxdelayratio":    kindFloat,
	"maxpoll":          kindInt,
	"maxsamples":       kindInt,
	"maxsources":       kindInt,
	"mindelay":         kindFloat,
	"minpoll":          kindInt,
	"minsamples":       kindInt,
	"minstratum":       kindInt,
	"noselect":         kindBool,
	"offline":          kindBool,
	"offset":           kindFloat,
	"polltarget":       kindInt,
	"prefer":           kindBool,
	"presend":          kindInt,
	"require":          kindBool,
	"trust":            kindBool,
	"version":          kindInt,
	"xleave":           kindBool,
}

// Source is one configured upstream time server.
type Source struct {
	Transport Transport
	Host      string

	// Port is the upstream port. Zero means the transport default
	// (123 for ntp, 4460 for nts) and is elided from rendering.
	Port int

	// Options are validated pool directive options, passed through to the
	// rendered pool line in lexicographic key order.
	Options map[string]string
}

// Secure reports whether the source uses NTS transport.
func (s Source) Secure() bool {
	return s.Transport == TransportSecure
}

// Directive renders the source as a chrony pool directive. Ports matching the
// transport default are elided so the rendering is canonical. Boolean options
// render as bare flags; all options appear in lexicographic key order.
func (s Source) Directive() string {
	parts := []string{"pool", s.Host}

	if s.Secure() {
		parts = append(parts, "nts")

		if s.Port != 0 && s.Port != defaultNTSPort {
			parts = append(parts, "ntsport", strconv.Itoa(s.Port))
		}
	} else if s.Port != 0 && s.Port != defaultNTPPort {
		parts = append(parts, "port", strconv.Itoa(s.Port))
	}

	keys := make([]string, 0, len(s.Options))
	for key := range s.Options {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		if poolOptions[key] == kindBool {
			if s.Options[key] == "true" {
				parts = append(parts, key)
			}

			continue
		}

		parts = append(parts, key, s.Options[key])
	}

	return strings.Join(parts, " ")
}

// ParseSourceURL parses a single time source URL. The scheme selects the
// transport (ntp or nts), the host is mandatory, and query parameters become
// pool options validated against the whitelist. When a query key appears more
// than once the last occurrence wins.
func ParseSourceURL(raw string) (Source, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return Source{}, errdefs.WrapConfiguration(err, "malformed time source URL "+strconv.Quote(raw))
	}

	var transport Transport

	switch parsed.Scheme {
	case "ntp":
		transport = TransportPlain
	case "nts":
		transport = TransportSecure
	default:
		return Source{}, errdefs.NewConfigurationf("invalid time source URL %q: unsupported scheme %q", raw, parsed.Scheme)
	}

	if parsed.Hostname() == "" {
		return Source{}, errdefs.NewConfigurationf("invalid time source URL %q: missing host", raw)
	}

	port := 0

	if portStr := parsed.Port(); portStr != "" {
		port, err = strconv.Atoi(portStr)
		if err != nil {
			return Source{}, errdefs.WrapConfiguration(err, "invalid time source URL "+strconv.Quote(raw))
		}
	}

	options, err := parseOptions(parsed.RawQuery)
	if err != nil {
		return Source{}, errors.Wrapf(err, "invalid time source URL %q", raw)
	}

	return Source{
		Transport: transport,
		Host:      parsed.Hostname(),
		Port:      port,
		Options:   options,
	}, nil
}

// ParseSources parses a comma-separated list of time source URLs into an
// ordered slice. Whitespace around entries is trimmed and empty entries are
// skipped; an empty input yields an empty slice, the valid "no time source
// configured" state. All malformed entries are reported in a single error.
func ParseSources(raw string) ([]Source, error) {
	var (
		sources  []Source
		problems []string
	)

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		source, err := ParseSourceURL(entry)
		if err != nil {
			problems = append(problems, err.Error())

			continue
		}

		sources = append(sources, source)
	}

	if len(problems) > 0 {
		return nil, errdefs.NewConfigurationf("invalid time sources: %s", strings.Join(problems, "; "))
	}

	return sources, nil
}

// parseOptions validates query parameters against the pool option whitelist.
// Keys are processed in query order so that the last duplicate wins.
func parseOptions(rawQuery string) (map[string]string, error) {
	if rawQuery == "" {
		return nil, nil
	}

	options := make(map[string]string)

	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}

		key, value, _ := strings.Cut(pair, "=")

		key, err := url.QueryUnescape(key)
		if err != nil {
			return nil, errdefs.WrapConfiguration(err, "malformed query key")
		}

		value, err = url.QueryUnescape(value)
		if err != nil {
			return nil, errdefs.WrapConfiguration(err, "malformed query value for "+strconv.Quote(key))
		}

		if key == "nts" {
			return nil, errdefs.NewConfiguration("option \"nts\" is reserved; use the nts:// scheme instead")
		}

		kind, ok := poolOptions[key]
		if !ok {
			return nil, errdefs.NewConfigurationf("unknown pool option %q", key)
		}

		if err := validateOptionValue(kind, value); err != nil {
			return nil, errors.Wrapf(err, "invalid value for pool option %q", key)
		}

		options[key] = value
	}

	return options, nil
}

func validateOptionValue(kind optionKind, value string) error {
	switch kind {
	case kindBool:
		if value != "true" && value != "false" {
			return errdefs.NewConfigurationf("expected true or false, got %q", value)
		}
	case kindInt:
		if _, err := strconv.Atoi(value); err != nil {
			return errdefs.WrapConfiguration(err, "expected an integer")
		}
	case kindFloat:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return errdefs.WrapConfiguration(err, "expected a number")
		}
	case kindString:
		if value == "" {
			return errdefs.NewConfiguration("expected a non-empty value")
		}
	}

	return nil
}
