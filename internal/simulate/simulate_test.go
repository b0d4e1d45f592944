package simulate

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	tperrors "github.com/vnykmshr/tempo/pkg/common/errors"
)

func TestRunDebounceTrace(t *testing.T) {
	trace, err := Load("testdata/search.yaml")
	require.NoError(t, err)

	report, err := Run(trace, nil)
	require.NoError(t, err)

	assert.Equal(t, "search-box", report.Name)
	assert.Equal(t, 4, report.Calls)
	assert.Equal(t, 2, report.Suppressed)
	assert.Equal(t, []Execution{
		{At: 70, Arg: "tem", Edge: EdgeTrailing},
		{At: 250, Arg: "tempo", Edge: EdgeTrailing},
	}, report.Executions)
	assert.NotEmpty(t, report.ID)
}

func TestRunThrottleTrace(t *testing.T) {
	trace, err := Load("testdata/scroll.yaml")
	require.NoError(t, err)

	report, err := Run(trace, nil)
	require.NoError(t, err)

	assert.Equal(t, "leading-trailing", report.Policy)
	assert.Equal(t, 1, report.Suppressed)
	assert.Equal(t, []Execution{
		{At: 0, Arg: "a", Edge: EdgeImmediate},
		{At: 100, Arg: "c", Edge: EdgeTrailing},
		{At: 250, Arg: "d", Edge: EdgeImmediate},
	}, report.Executions)
}

func TestRunVariants(t *testing.T) {
	tests := []struct {
		name  string
		trace string
		want  []Execution
	}{
		{
			name: "basic throttle drops",
			trace: `
control: throttle
delay: 100
events: [{at: 0, arg: a}, {at: 50, arg: b}, {at: 100, arg: c}, {at: 150, arg: d}]
`,
			want: []Execution{
				{At: 0, Arg: "a", Edge: EdgeImmediate},
				{At: 100, Arg: "c", Edge: EdgeImmediate},
			},
		},
		{
			name: "zero delay debounce runs inline",
			trace: `
control: debounce
delay: 0
events: [{at: 5, arg: a}, {at: 5, arg: b}]
`,
			want: []Execution{
				{At: 5, Arg: "a", Edge: EdgeImmediate},
				{At: 5, Arg: "b", Edge: EdgeImmediate},
			},
		},
		{
			name: "max wait caps a long burst",
			trace: `
control: debounce
delay: 50
max_wait: 100
events: [{at: 0, arg: a}, {at: 40, arg: b}, {at: 80, arg: c}, {at: 120, arg: d}]
`,
			want: []Execution{
				{At: 100, Arg: "c", Edge: EdgeTrailing},
				{At: 170, Arg: "d", Edge: EdgeTrailing},
			},
		},
		{
			name: "leading debounce",
			trace: `
control: debounce
delay: 50
leading: true
events: [{at: 0, arg: a}, {at: 10, arg: b}]
`,
			want: []Execution{
				{At: 0, Arg: "a", Edge: EdgeImmediate},
				{At: 60, Arg: "b", Edge: EdgeTrailing},
			},
		},
		{
			name: "empty trace",
			trace: `
control: debounce
delay: 50
events: []
`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trace, err := Parse(strings.NewReader(tt.trace))
			require.NoError(t, err)

			report, err := Run(trace, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, report.Executions)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name       string
		trace      string
		validation bool
	}{
		{"unknown control", "control: batch\ndelay: 10\n", true},
		{"unknown policy", "control: throttle\npolicy: trailing\ndelay: 10\n", true},
		{"negative delay", "control: debounce\ndelay: -1\n", true},
		{"max wait below delay", "control: debounce\ndelay: 50\nmax_wait: 10\n", true},
		{"events out of order", "control: debounce\ndelay: 5\nevents: [{at: 10, arg: a}, {at: 5, arg: b}]\n", true},
		{"delay too large", "control: debounce\ndelay: 86400001\n", true},
		{"max wait too large", "control: debounce\ndelay: 5\nmax_wait: 9300000000000\n", true},
		{"event time too large", "control: throttle\ndelay: 5\nevents: [{at: 9300000000000, arg: a}]\n", true},
		{"unknown field", "control: debounce\ndelay: 5\nwindow: 10\n", false},
		{"not yaml", "control: [debounce\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.trace))
			require.Error(t, err)
			assert.Equal(t, tt.validation, tperrors.IsValidationError(err))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	trace, err := Load("testdata/scroll.yaml")
	require.NoError(t, err)
	report, err := Run(trace, nil)
	require.NoError(t, err)

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, report, FormatTable))

		out := buf.String()
		assert.Contains(t, out, "scroll: throttle (leading-trailing) 100ms")
		assert.Contains(t, out, "trailing")
		assert.Contains(t, out, "immediate")
		assert.Equal(t, 3, strings.Count(out, "│ immediate")+strings.Count(out, "│ trailing"))
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, report, FormatYAML))

		var decoded Report
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, report.Executions, decoded.Executions)
		assert.Equal(t, report.ID, decoded.ID)
	})

	t.Run("unknown format", func(t *testing.T) {
		err := Render(&bytes.Buffer{}, report, "csv")
		assert.True(t, tperrors.IsValidationError(err))
	})
}
