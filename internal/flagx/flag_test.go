package flagx

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	// Client flags mixed with the stub backend's and a config file.
	client := []string{"-u", "-t", "-p", "-d", "-l", "-m"}

	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "keeps own flags with values",
			args:    []string{"-u", "http://127.0.0.1:8080", "-a", ":9000", "-t", "3"},
			allowed: client,
			want:    []string{"-u", "http://127.0.0.1:8080", "-t", "3"},
		},
		{
			name:    "equals form",
			args:    []string{"-m=:9100", "-s=secret"},
			allowed: client,
			want:    []string{"-m=:9100"},
		},
		{
			name:    "equals value may start with a dash",
			args:    []string{"-config=--odd.json"},
			allowed: []string{"-config"},
			want:    []string{"-config=--odd.json"},
		},
		{
			name:    "dash-prefixed next token is not a value",
			args:    []string{"-d", "-l", "debug"},
			allowed: client,
			want:    []string{"-d", "-l", "debug"},
		},
		{
			name:    "trailing flag without value",
			args:    []string{"-l"},
			allowed: client,
			want:    []string{"-l"},
		},
		{
			name:    "positional arguments dropped",
			args:    []string{"status", "-x", "1"},
			allowed: client,
			want:    []string{},
		},
		{
			name:    "repeats kept in order",
			args:    []string{"-c", "one.json", "-c", "two.json"},
			allowed: []string{"-c"},
			want:    []string{"-c", "one.json", "-c", "two.json"},
		},
		{
			name:    "nil args",
			args:    nil,
			allowed: client,
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowed)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FilterArgs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "short form", args: []string{"-c", "/etc/smartaccess/short.json"}, want: "/etc/smartaccess/short.json"},
		{name: "long form", args: []string{"-config", "/etc/smartaccess/long.json"}, want: "/etc/smartaccess/long.json"},
		{name: "other flags only", args: []string{"-u", "http://localhost", "-t", "5"}, want: ""},
		{name: "last one wins", args: []string{"-c", "/a.json", "-config", "/b.json"}, want: "/b.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigFileFlag(tt.args))
		})
	}
}
