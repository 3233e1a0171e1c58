package chrony_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/chrony-operator/internal/chrony"
	"github.com/lexfrei/chrony-operator/internal/errdefs"
)

func TestParseSourceURL_PlainNTP(t *testing.T) {
	t.Parallel()

	source, err := chrony.ParseSourceURL("ntp://ntp.ubuntu.com")
	require.NoError(t, err)

	assert.Equal(t, chrony.TransportPlain, source.Transport)
	assert.Equal(t, "ntp.ubuntu.com", source.Host)
	assert.Equal(t, 0, source.Port)
	assert.False(t, source.Secure())
}

func TestParseSourceURL_NTS(t *testing.T) {
	t.Parallel()

	source, err := chrony.ParseSourceURL("nts://time.cloudflare.com")
	require.NoError(t, err)

	assert.Equal(t, chrony.TransportSecure, source.Transport)
	assert.Equal(t, "time.cloudflare.com", source.Host)
	assert.True(t, source.Secure())
}

func TestParseSourceURL_WithOptions(t *testing.T) {
	t.Parallel()

	source, err := chrony.ParseSourceURL("ntp://ntp.example.com:1234?iburst=true&maxsources=2")
	require.NoError(t, err)

	assert.Equal(t, 1234, source.Port)
	assert.Equal(t, map[string]string{"iburst": "true", "maxsources": "2"}, source.Options)
}

func TestParseSourceURL_DuplicateKeyLastWins(t *testing.T) {
	t.Parallel()

	source, err := chrony.ParseSourceURL("ntp://ntp.example.com?minpoll=4&minpoll=6")
	require.NoError(t, err)

	assert.Equal(t, "6", source.Options["minpoll"])
}

func TestParseSourceURL_UnsupportedScheme(t *testing.T) {
	t.Parallel()

	_, err := chrony.ParseSourceURL("ftp://ntp.example.com")
	require.Error(t, err)
	assert.True(t, errdefs.IsConfiguration(err))
	assert.Contains(t, err.Error(), "unsupported scheme")
}

func TestParseSourceURL_MissingHost(t *testing.T) {
	t.Parallel()

	_, err := chrony.ParseSourceURL("ntp://")
	require.Error(t, err)
	assert.True(t, errdefs.IsConfiguration(err))
}

func TestParseSourceURL_UnknownOption(t *testing.T) {
	t.Parallel()

	_, err := chrony.ParseSourceURL("ntp://ntp.example.com?frobnicate=1")
	require.Error(t, err)
	assert.True(t, errdefs.IsConfiguration(err))
	assert.Contains(t, err.Error(), "frobnicate")
}

func TestParseSourceURL_ReservedNTSOption(t *testing.T) {
	t.Parallel()

	_, err := chrony.ParseSourceURL("ntp://ntp.example.com?nts=true")
	require.Error(t, err)
	assert.True(t, errdefs.IsConfiguration(err))
	assert.Contains(t, err.Error(), "reserved")
}

func TestParseSourceURL_OptionValueValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		url  string
	}{
		{"bool gets non-bool", "ntp://h.example.com?iburst=yes"},
		{"int gets float", "ntp://h.example.com?minpoll=4.5"},
		{"float gets word", "ntp://h.example.com?maxdelay=fast"},
		{"string gets empty", "ntp://h.example.com?certset="},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := chrony.ParseSourceURL(tc.url)
			require.Error(t, err)
			assert.True(t, errdefs.IsConfiguration(err))
		})
	}
}

func TestParseSources_Empty(t *testing.T) {
	t.Parallel()

	sources, err := chrony.ParseSources("")
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestParseSources_PreservesOrder(t *testing.T) {
	t.Parallel()

	sources, err := chrony.ParseSources("ntp://b.example.com, nts://a.example.com")
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, "b.example.com", sources[0].Host)
	assert.Equal(t, "a.example.com", sources[1].Host)
}

func TestParseSources_AggregatesAllProblems(t *testing.T) {
	t.Parallel()

	_, err := chrony.ParseSources("ftp://bad.example.com,ntp://ok.example.com,ntp://worse?bogus=1")
	require.Error(t, err)
	assert.True(t, errdefs.IsConfiguration(err))

	// Both malformed entries are reported in one error.
	assert.Contains(t, err.Error(), "bad.example.com")
	assert.Contains(t, err.Error(), "bogus")
}

func TestDirective_DefaultPortElided(t *testing.T) {
	t.Parallel()

	source, err := chrony.ParseSourceURL("ntp://ntp.example.com:123")
	require.NoError(t, err)
	assert.Equal(t, "pool ntp.example.com", source.Directive())

	source, err = chrony.ParseSourceURL("nts://nts.example.com:4460")
	require.NoError(t, err)
	assert.Equal(t, "pool nts.example.com nts", source.Directive())
}

func TestDirective_NonDefaultPort(t *testing.T) {
	t.Parallel()

	source, err := chrony.ParseSourceURL("ntp://ntp.example.com:1123")
	require.NoError(t, err)
	assert.Equal(t, "pool ntp.example.com port 1123", source.Directive())

	source, err = chrony.ParseSourceURL("nts://nts.example.com:14460")
	require.NoError(t, err)
	assert.Equal(t, "pool nts.example.com nts ntsport 14460", source.Directive())
}

func TestDirective_OptionsSortedBoolsBare(t *testing.T) {
	t.Parallel()

	source, err := chrony.ParseSourceURL("ntp://ntp.example.com?prefer=true&maxsources=2&iburst=true&offline=false")
	require.NoError(t, err)

	// Options render in lexicographic order, true booleans as bare flags,
	// false booleans elided.
	assert.Equal(t, "pool ntp.example.com iburst maxsources 2 prefer", source.Directive())
}
