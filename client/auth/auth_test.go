package auth_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/hopper/client/auth"
)

const rfcChallenge = `Digest realm="testrealm@host.com", qop="auth,auth-int", ` +
	`nonce="dcd98b7102dd2f0e8b11d0f600bfb0c093", opaque="5ccc069c403ebaf9f0171e9517f40e41"`

func fixedCnonce(t *testing.T, v string) {
	t.Helper()

	orig := auth.NewCnonce
	auth.NewCnonce = func() string { return v }
	t.Cleanup(func() { auth.NewCnonce = orig })
}

func TestBasic(t *testing.T) {
	got := auth.Basic("Aladdin", "open sesame")
	if got != "Basic QWxhZGRpbjpvcGVuIHNlc2FtZQ==" {
		t.Errorf("unexpected header %q", got)
	}
}

func TestParseChallenge(t *testing.T) {
	exp := map[string]string{
		"realm":  "testrealm@host.com",
		"qop":    "auth,auth-int",
		"nonce":  "dcd98b7102dd2f0e8b11d0f600bfb0c093",
		"opaque": "5ccc069c403ebaf9f0171e9517f40e41",
	}

	if diff := cmp.Diff(exp, auth.ParseChallenge(rfcChallenge)); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestDigest_RFC2617(t *testing.T) {
	fixedCnonce(t, "0a4f113b")

	got, ok := auth.Digest(rfcChallenge, "Mufasa", "Circle Of Life", "GET", "/dir/index.html")
	if !ok {
		t.Fatal("exp digest header")
	}

	for _, want := range []string{
		`username="Mufasa"`,
		`realm="testrealm@host.com"`,
		`uri="/dir/index.html"`,
		"qop=auth",
		"nc=00000001",
		`cnonce="0a4f113b"`,
		`response="6629fae49393a05397450978507c4ef1"`,
		`opaque="5ccc069c403ebaf9f0171e9517f40e41"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("exp %s in %q", want, got)
		}
	}
	if !strings.HasPrefix(got, "Digest ") {
		t.Errorf("exp Digest scheme, got %q", got)
	}
}

func TestNegotiate(t *testing.T) {
	fixedCnonce(t, "abc")

	testCases := map[string]struct {
		neg       auth.Negotiator
		challenge string
		expOK     bool
		expPrefix string
	}{
		"defaultBasic": {
			neg:       auth.Default(),
			challenge: `Basic realm="api"`,
			expOK:     true,
			expPrefix: "Basic ",
		},
		"defaultBasicCaseInsensitive": {
			neg:       auth.Default(),
			challenge: `BASIC realm="api"`,
			expOK:     true,
			expPrefix: "Basic ",
		},
		"defaultDigest": {
			neg:       auth.Default(),
			challenge: rfcChallenge,
			expOK:     true,
			expPrefix: "Digest ",
		},
		"defaultUnknown": {
			neg:       auth.Default(),
			challenge: `Bearer realm="api"`,
		},
		"digestOnlyRejectsBasic": {
			neg:       auth.DigestOnly(auth.Default()),
			challenge: `Basic realm="api"`,
		},
		"digestOnlyDigest": {
			neg:       auth.DigestOnly(auth.Default()),
			challenge: rfcChallenge,
			expOK:     true,
			expPrefix: "Digest ",
		},
		"digestMissingNonce": {
			neg:       auth.Default(),
			challenge: `Digest realm="api"`,
		},
		"digestUnsupportedAlgorithm": {
			neg:       auth.Default(),
			challenge: `Digest realm="api", nonce="n", algorithm=SHA-512-256`,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			got, ok := tc.neg.Negotiate(tc.challenge, "u", "p", "GET", "/")
			if ok != tc.expOK {
				t.Fatalf("exp ok=%v, got %v (%q)", tc.expOK, ok, got)
			}
			if !strings.HasPrefix(got, tc.expPrefix) {
				t.Errorf("exp prefix %q, got %q", tc.expPrefix, got)
			}
		})
	}
}

func TestDigest_MD5Sess(t *testing.T) {
	fixedCnonce(t, "0a4f113b")

	a, ok := auth.Digest(`Digest realm="r", nonce="n", algorithm=MD5-sess, qop="auth"`, "u", "p", "GET", "/x")
	if !ok {
		t.Fatal("exp digest header")
	}
	b, _ := auth.Digest(`Digest realm="r", nonce="n", qop="auth"`, "u", "p", "GET", "/x")

	if a == b {
		t.Error("exp MD5-sess response to differ from MD5")
	}
	if !strings.Contains(a, "algorithm=MD5-sess") {
		t.Errorf("exp algorithm echoed, got %q", a)
	}
}

func TestDigest_QuotedValues(t *testing.T) {
	fixedCnonce(t, "0a4f113b")

	const user = `jo"e\ops`
	h, ok := auth.Digest(`Digest realm="a \"quoted\" realm", nonce="n", opaque="o\\p"`, user, "pw", "GET", "/x")
	if !ok {
		t.Fatal("exp digest header")
	}

	if !strings.Contains(h, `username="jo\"e\\ops"`) {
		t.Errorf("exp escaped username, got %q", h)
	}

	got := auth.ParseChallenge(h)
	exp := map[string]string{
		"username": user,
		"realm":    `a "quoted" realm`,
		"opaque":   `o\p`,
		"uri":      "/x",
	}
	for k, v := range exp {
		if got[k] != v {
			t.Errorf("%s: exp %q, got %q", k, v, got[k])
		}
	}
}
