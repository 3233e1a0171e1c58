package chrony

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/chrony-operator/internal/errdefs"
)

// Tracking is chronyd's view of the system clock, parsed from
// `chronyc -c tracking`.
type Tracking struct {
	// ReferenceID is the hex reference ID of the selected source.
	ReferenceID string
	// ReferenceName is the name or address of the selected source.
	ReferenceName string
	// Stratum of the local clock.
	Stratum int
	// RefTime is the last measurement time as a Unix timestamp.
	RefTime float64
	// SystemOffsetSeconds is the current estimated clock offset.
	SystemOffsetSeconds float64
	// LastOffsetSeconds is the offset at the last measurement.
	LastOffsetSeconds float64
	// RMSOffsetSeconds is the long-term offset average.
	RMSOffsetSeconds float64
	// FrequencyPPM is the clock frequency error.
	FrequencyPPM float64
	// ResidualFrequencyPPM is the residual frequency of the current source.
	ResidualFrequencyPPM float64
	// SkewPPM is the error bound on the frequency.
	SkewPPM float64
	// RootDelaySeconds is the total network path delay to the stratum-1 source.
	RootDelaySeconds float64
	// RootDispersionSeconds is the total accumulated dispersion.
	RootDispersionSeconds float64
	// UpdateIntervalSeconds is the interval between clock updates.
	UpdateIntervalSeconds float64
	// LeapStatus is the leap second status (Normal, Insert second, ...).
	LeapStatus string
}

// SourceReport is one upstream source's state, parsed from
// `chronyc -c sources`.
type SourceReport struct {
	// Mode is the source mode indicator (^ server, = peer, # refclock).
	Mode string
	// State is the selection state indicator (* current best, + combined,
	// - not combined, ? unreachable, x false ticker, ~ too variable).
	State string
	// Address is the source name or address.
	Address string
	// Stratum of the source.
	Stratum int
	// PollExponent is the polling interval as a power of two in seconds.
	PollExponent int
	// Reachability is the octal reachability register (377 = all recent
	// polls answered).
	Reachability int
	// LastSampleAgeSeconds is the age of the last good sample.
	LastSampleAgeSeconds int
	// OffsetSeconds is the adjusted offset of the last sample.
	OffsetSeconds float64
	// MeasuredOffsetSeconds is the actual measured offset of the last sample.
	MeasuredOffsetSeconds float64
	// ErrorMarginSeconds is the margin of error of the last sample.
	ErrorMarginSeconds float64
}

// Reachable reports whether the source answered its most recent poll.
func (r SourceReport) Reachable() bool {
	return r.Reachability&1 == 1
}

const (
	trackingFieldCount = 14
	sourcesFieldCount  = 10
)

// ParseTracking parses `chronyc -c tracking` output (one comma-separated
// record). A parse failure is a service error: it means the daemon answered
// with something unexpected, and the caller must report unknown rather than
// guess.
func ParseTracking(output string) (*Tracking, error) {
	fields := strings.Split(strings.TrimSpace(output), ",")
	if len(fields) != trackingFieldCount {
		return nil, errdefs.WrapService(
			errors.Newf("expected %d fields, got %d", trackingFieldCount, len(fields)),
			"unexpected chronyc tracking output",
		)
	}

	tracking := &Tracking{
		ReferenceID:   fields[0],
		ReferenceName: fields[1],
		LeapStatus:    fields[13],
	}

	var err error

	tracking.Stratum, err = strconv.Atoi(fields[2])
	if err != nil {
		return nil, errdefs.WrapService(err, "unexpected stratum in chronyc tracking output")
	}

	floats := []struct {
		dst   *float64
		field string
		name  string
	}{
		{&tracking.RefTime, fields[3], "ref time"},
		{&tracking.SystemOffsetSeconds, fields[4], "system offset"},
		{&tracking.LastOffsetSeconds, fields[5], "last offset"},
		{&tracking.RMSOffsetSeconds, fields[6], "rms offset"},
		{&tracking.FrequencyPPM, fields[7], "frequency"},
		{&tracking.ResidualFrequencyPPM, fields[8], "residual frequency"},
		{&tracking.SkewPPM, fields[9], "skew"},
		{&tracking.RootDelaySeconds, fields[10], "root delay"},
		{&tracking.RootDispersionSeconds, fields[11], "root dispersion"},
		{&tracking.UpdateIntervalSeconds, fields[12], "update interval"},
	}

	for _, f := range floats {
		*f.dst, err = strconv.ParseFloat(f.field, 64)
		if err != nil {
			return nil, errdefs.WrapService(err, "unexpected "+f.name+" in chronyc tracking output")
		}
	}

	return tracking, nil
}

// ParseSourceReports parses `chronyc -c sources` output, one comma-separated
// record per source.
func ParseSourceReports(output string) ([]SourceReport, error) {
	var reports []SourceReport

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		report, err := parseSourceReport(line)
		if err != nil {
			return nil, err
		}

		reports = append(reports, report)
	}

	return reports, nil
}

func parseSourceReport(line string) (SourceReport, error) {
	fields := strings.Split(line, ",")
	if len(fields) != sourcesFieldCount {
		return SourceReport{}, errdefs.WrapService(
			errors.Newf("expected %d fields, got %d", sourcesFieldCount, len(fields)),
			"unexpected chronyc sources output",
		)
	}

	report := SourceReport{
		Mode:    fields[0],
		State:   fields[1],
		Address: fields[2],
	}

	ints := []struct {
		dst   *int
		field string
		name  string
	}{
		{&report.Stratum, fields[3], "stratum"},
		{&report.PollExponent, fields[4], "poll"},
		{&report.LastSampleAgeSeconds, fields[6], "sample age"},
	}

	for _, f := range ints {
		value, err := strconv.Atoi(f.field)
		if err != nil {
			return SourceReport{}, errdefs.WrapService(err, "unexpected "+f.name+" in chronyc sources output")
		}

		*f.dst = value
	}

	// Reachability is reported in octal, matching the daemon's shift register.
	reach, err := strconv.ParseInt(fields[5], 8, 32)
	if err != nil {
		return SourceReport{}, errdefs.WrapService(err, "unexpected reachability in chronyc sources output")
	}

	report.Reachability = int(reach)

	floats := []struct {
		dst   *float64
		field string
		name  string
	}{
		{&report.OffsetSeconds, fields[7], "offset"},
		{&report.MeasuredOffsetSeconds, fields[8], "measured offset"},
		{&report.ErrorMarginSeconds, fields[9], "error margin"},
	}

	for _, f := range floats {
		*f.dst, err = strconv.ParseFloat(f.field, 64)
		if err != nil {
			return SourceReport{}, errdefs.WrapService(err, "unexpected "+f.name+" in chronyc sources output")
		}
	}

	return report, nil
}
