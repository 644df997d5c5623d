package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const uri = "otpauth://totp/Example:alice?secret=JBSWY3DPEHPK3PXP"

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()
	assert.Empty(t, cmp.Diff(Config{Issuer: "tgotp"}, c))
}

func TestLoad_Precedence(t *testing.T) {
	path := writeTempJSON(t, map[string]any{"uri": "from-json", "watch": true, "count": 3})

	tests := []struct {
		name    string
		args    []string
		environ map[string]string
		want    Config
	}{
		{name: "defaults", want: Config{Issuer: "tgotp"}},
		{name: "json", args: []string{"-c", path}, want: Config{URI: "from-json", Watch: true, Count: 3, Issuer: "tgotp"}},
		{
			name:    "env over json",
			args:    []string{"-c", path},
			environ: map[string]string{"TGOTP_URI": "from-env", "TGOTP_COUNT": "5"},
			want:    Config{URI: "from-env", Watch: true, Count: 5, Issuer: "tgotp"},
		},
		{
			name:    "flags over env",
			args:    []string{"-config=" + path, "-uri", uri, "-watch=false", "-n", "1"},
			environ: map[string]string{"TGOTP_URI": "from-env"},
			want:    Config{URI: uri, Watch: false, Count: 1, Issuer: "tgotp"},
		},
		{name: "unknown args ignored", args: []string{"-x", "1", "-watch"}, want: Config{Watch: true, Issuer: "tgotp"}},
		{
			name:    "provisioning",
			args:    []string{"-new", "alice", "-issuer", "ACME"},
			environ: map[string]string{"TGOTP_ISSUER": "env"},
			want:    Config{NewAccount: "alice", Issuer: "ACME"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.args, tt.environ)
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.want, *got))
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{ nope`), 0o600))

	_, err := Load([]string{"-c", bad}, nil)
	assert.ErrorContains(t, err, "json config")

	_, err = Load([]string{"-c", filepath.Join(t.TempDir(), "missing.json")}, nil)
	assert.Error(t, err)

	_, err = Load(nil, map[string]string{"TGOTP_COUNT": "many"})
	assert.ErrorContains(t, err, "env config")

	_, err = Load([]string{"-n", "abc"}, nil)
	assert.ErrorContains(t, err, "flags")

	_, err = Load([]string{"-n", "-1"}, nil)
	assert.Error(t, err)
}
