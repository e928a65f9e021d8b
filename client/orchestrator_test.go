package client

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/hopper/client/auth"
	"github.com/adamwoolhether/hopper/client/stage"
)

func response(code int, kv ...string) *http.Response {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return &http.Response{StatusCode: code, Header: h}
}

func TestDecide(t *testing.T) {
	base, _ := url.Parse("http://example.com/a/b?q=1")
	creds := &credentials{username: "u", password: "p", mode: AuthAuto}

	testCases := map[string]struct {
		rc     requestContext
		resp   *http.Response
		exp    string
		expLoc string
		expErr error
	}{
		"okProceeds": {
			rc:   requestContext{attempt: 1, budget: 3},
			resp: response(http.StatusOK),
			exp:  "proceed",
		},
		"movedWithinBudget": {
			rc:     requestContext{attempt: 1, budget: 1},
			resp:   response(http.StatusMovedPermanently, "Location", "/c"),
			exp:    "redirect",
			expLoc: "http://example.com/c",
		},
		"foundRelative": {
			rc:     requestContext{attempt: 2, budget: 2},
			resp:   response(http.StatusFound, "Location", "d"),
			exp:    "redirect",
			expLoc: "http://example.com/a/d",
		},
		"foundAbsolute": {
			rc:     requestContext{attempt: 1, budget: 5},
			resp:   response(http.StatusFound, "Location", "https://other.test/x"),
			exp:    "redirect",
			expLoc: "https://other.test/x",
		},
		"budgetExceeded": {
			rc:     requestContext{attempt: 3, budget: 2},
			resp:   response(http.StatusMovedPermanently, "Location", "/c"),
			exp:    "fail",
			expErr: ErrMaxRedirects,
		},
		"budgetZeroIsTerminal": {
			rc:   requestContext{attempt: 1, budget: 0},
			resp: response(http.StatusMovedPermanently, "Location", "/c"),
			exp:  "proceed",
		},
		"redirectWithoutLocation": {
			rc:   requestContext{attempt: 1, budget: 5},
			resp: response(http.StatusFound),
			exp:  "proceed",
		},
		"seeOtherNotFollowed": {
			rc:   requestContext{attempt: 1, budget: 5},
			resp: response(http.StatusSeeOther, "Location", "/c"),
			exp:  "proceed",
		},
		"badLocation": {
			rc:   requestContext{attempt: 1, budget: 5},
			resp: response(http.StatusFound, "Location", "http://[::1"),
			exp:  "fail",
		},
		"challengeAnswered": {
			rc:   requestContext{attempt: 1, creds: creds, negotiator: auth.Default()},
			resp: response(http.StatusUnauthorized, "WWW-Authenticate", `Basic realm="x"`),
			exp:  "reauthenticate",
		},
		"challengeWithoutCredentials": {
			rc:   requestContext{attempt: 1},
			resp: response(http.StatusUnauthorized, "WWW-Authenticate", `Basic realm="x"`),
			exp:  "proceed",
		},
		"challengeAlreadyAnswered": {
			rc:   requestContext{attempt: 1, creds: creds, negotiator: auth.Default(), authorized: true},
			resp: response(http.StatusUnauthorized, "WWW-Authenticate", `Basic realm="x"`),
			exp:  "proceed",
		},
		"challengeWithCallerAuthorization": {
			rc: requestContext{
				attempt: 1, creds: creds, negotiator: auth.Default(),
				header: http.Header{"Authorization": []string{"Bearer t"}},
			},
			resp: response(http.StatusUnauthorized, "WWW-Authenticate", `Basic realm="x"`),
			exp:  "proceed",
		},
		"unsupportedScheme": {
			rc:   requestContext{attempt: 1, creds: creds, negotiator: auth.Default()},
			resp: response(http.StatusUnauthorized, "WWW-Authenticate", `Bearer realm="x"`),
			exp:  "proceed",
		},
		"unauthorizedWithoutChallenge": {
			rc:   requestContext{attempt: 1, creds: creds, negotiator: auth.Default()},
			resp: response(http.StatusUnauthorized),
			exp:  "proceed",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			rc := tc.rc
			rc.method = http.MethodGet
			rc.uri = base
			if rc.header == nil {
				rc.header = http.Header{}
			}

			switch d := decide(&rc, tc.resp).(type) {
			case proceed:
				if tc.exp != "proceed" {
					t.Fatalf("exp %s, got proceed", tc.exp)
				}
			case redirect:
				if tc.exp != "redirect" {
					t.Fatalf("exp %s, got redirect", tc.exp)
				}
				if got := d.location.String(); got != tc.expLoc {
					t.Errorf("exp location %s, got %s", tc.expLoc, got)
				}
			case reauthenticate:
				if tc.exp != "reauthenticate" {
					t.Fatalf("exp %s, got reauthenticate", tc.exp)
				}
				if d.header != auth.Basic("u", "p") {
					t.Errorf("unexpected header %q", d.header)
				}
			case fail:
				if tc.exp != "fail" {
					t.Fatalf("exp %s, got fail: %v", tc.exp, d.err)
				}
				if tc.expErr != nil && !errors.Is(d.err, tc.expErr) {
					t.Errorf("exp %v, got %v", tc.expErr, d.err)
				}
			}
		})
	}
}

func TestDecide_MaxRedirectsCarriesLocation(t *testing.T) {
	base, _ := url.Parse("http://example.com/")
	rc := requestContext{method: http.MethodGet, uri: base, header: http.Header{}, attempt: 2, budget: 1}

	d, ok := decide(&rc, response(http.StatusFound, "Location", "/next")).(fail)
	if !ok {
		t.Fatal("exp fail decision")
	}

	var mre *MaxRedirectsError
	if !errors.As(d.err, &mre) {
		t.Fatalf("exp MaxRedirectsError, got %v", d.err)
	}
	if mre.Location != "/next" || mre.Budget != 1 {
		t.Errorf("unexpected error fields %+v", mre)
	}
}

func TestAggregate(t *testing.T) {
	testCases := map[string]struct {
		items   []stage.Chunk
		textual bool
		expKind BodyKind
		expRaw  []byte
		expObj  any
	}{
		"singleObject": {
			items:   []stage.Chunk{{Kind: stage.KindObject, Object: map[string]any{"a": 1.0}}},
			textual: true,
			expKind: BodyObject,
			expObj:  map[string]any{"a": 1.0},
		},
		"textChunks": {
			items:   []stage.Chunk{{Bytes: []byte("he")}, {Bytes: []byte("llo")}},
			textual: true,
			expKind: BodyText,
			expRaw:  []byte("hello"),
		},
		"binaryChunks": {
			items:   []stage.Chunk{{Bytes: []byte{0x00, 0x01}}, {Bytes: []byte{0x02}}},
			expKind: BodyBytes,
			expRaw:  []byte{0x00, 0x01, 0x02},
		},
		"empty": {
			textual: true,
			expKind: BodyText,
		},
		"parserFallbackBytes": {
			items:   []stage.Chunk{{Kind: stage.KindBytes, Bytes: []byte("<html>")}},
			textual: true,
			expKind: BodyText,
			expRaw:  []byte("<html>"),
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			b := aggregate(tc.items, tc.textual)

			if b.Kind() != tc.expKind {
				t.Errorf("exp kind %v, got %v", tc.expKind, b.Kind())
			}
			if diff := cmp.Diff(string(tc.expRaw), b.String()); diff != "" {
				t.Errorf("bytes mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.expObj, b.Object()); diff != "" {
				t.Errorf("object mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseTarget(t *testing.T) {
	testCases := map[string]struct {
		target string
		exp    string
		expErr bool
	}{
		"noScheme":  {target: "example.com/x", exp: "http://example.com/x"},
		"http":      {target: "http://example.com", exp: "http://example.com"},
		"https":     {target: "https://example.com/a?b=c", exp: "https://example.com/a?b=c"},
		"hostPort":  {target: "localhost:8080/p", exp: "http://localhost:8080/p"},
		"empty":     {target: "  ", expErr: true},
		"otherKept": {target: "ftp://example.com", exp: "ftp://example.com"},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			u, err := parseTarget(tc.target)
			if tc.expErr {
				if err == nil {
					t.Fatal("exp error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if u.String() != tc.exp {
				t.Errorf("exp %s, got %s", tc.exp, u)
			}
		})
	}
}
