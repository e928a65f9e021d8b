package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/hopper/config"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hopper.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	d := config.Default()

	if d.Follow != 0 {
		t.Errorf("exp no redirects by default, got %d", d.Follow)
	}
	if d.Timeout != 10*time.Second {
		t.Errorf("exp 10s timeout, got %v", d.Timeout)
	}
	if !d.Decode || !d.Parse || d.StrictParse || d.Compressed {
		t.Errorf("unexpected flags %+v", d)
	}
	if d.Accept != "*/*" {
		t.Errorf("exp */* accept, got %q", d.Accept)
	}
	if !strings.HasPrefix(d.UserAgent, "hopper/"+config.Version) {
		t.Errorf("unexpected user agent %q", d.UserAgent)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	testCases := map[string]struct {
		file   string
		env    map[string]string
		modify func(d *config.Defaults)
	}{
		"noFile": {
			modify: func(d *config.Defaults) {},
		},
		"yamlFile": {
			file: "follow: 3\ntimeout: 2s\ncompressed: true\naccept: application/json\n",
			modify: func(d *config.Defaults) {
				d.Follow = 3
				d.Timeout = 2 * time.Second
				d.Compressed = true
				d.Accept = "application/json"
			},
		},
		"envOverridesFile": {
			file: "follow: 3\ndecode: true\n",
			env: map[string]string{
				"HOPPER_FOLLOW":       "5",
				"HOPPER_DECODE":       "false",
				"HOPPER_STRICT_PARSE": "true",
				"HOPPER_USER_AGENT":   "custom/1",
			},
			modify: func(d *config.Defaults) {
				d.Follow = 5
				d.Decode = false
				d.StrictParse = true
				d.UserAgent = "custom/1"
			},
		},
		"proxy": {
			env: map[string]string{"HOPPER_PROXY": "http://proxy.local:3128"},
			modify: func(d *config.Defaults) {
				d.Proxy = "http://proxy.local:3128"
			},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			path := filepath.Join(t.TempDir(), "missing.yaml")
			if tc.file != "" {
				path = writeFile(t, tc.file)
			}

			got, err := config.Load(path)
			if err != nil {
				t.Fatalf("loading: %v", err)
			}

			exp := config.Default()
			tc.modify(&exp)

			if diff := cmp.Diff(exp, got); diff != "" {
				t.Errorf("defaults mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	testCases := map[string]struct {
		file     string
		expField string
	}{
		"negativeFollow": {
			file:     "follow: -1\n",
			expField: "follow",
		},
		"emptyAccept": {
			file:     "accept: \"\"\n",
			expField: "accept",
		},
		"badProxy": {
			file:     "proxy: not a url\n",
			expField: "proxy",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeFile(t, tc.file))

			var fe config.FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("exp FieldErrors, got %v", err)
			}
			if len(fe) != 1 || fe[0].Field != tc.expField {
				t.Errorf("exp error on %s, got %v", tc.expField, fe)
			}
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	if _, err := config.Load(writeFile(t, "follow: [unterminated\n")); err == nil {
		t.Error("exp error for malformed yaml")
	}
}
