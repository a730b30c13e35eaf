// Package nip5 resolves NIP-05 DNS-based identifiers (user@domain) to
// public keys via the /.well-known/nostr.json HTTPS endpoint.
package nip5

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/silex-im/silex/pkg/context"
	"github.com/silex-im/silex/pkg/nostr/keys"
	"github.com/silex-im/silex/pkg/nostr/pointers"
	"github.com/silex-im/silex/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

// identifierRegex matches `local@domain` where local is optional and
// defaults to the literal `_`.
var identifierRegex = regexp.MustCompile(
	`^(([A-Za-z0-9._+-]+)@)?([A-Za-z0-9_-]+([.][A-Za-z0-9_-]+)+)$`)

var (
	// ErrNotFound means the well-known document was fetched but the name is
	// absent from it.
	ErrNotFound = errors.New("name not found in nostr.json")
	// ErrMismatch means the name resolved to a different public key than
	// expected.
	ErrMismatch = errors.New("pubkey does not match nip-05 identifier")
)

const (
	defaultTimeout = 5 * time.Second
	maxRedirects   = 5
)

// Config carries the resolver knobs.
type Config struct {
	// Timeout bounds each HTTP fetch.
	Timeout time.Duration
	// AllowInsecure disables TLS verification. Testing only.
	AllowInsecure bool
	// Debug enables verbose resolver tracing to stderr.
	Debug bool
}

// ConfigFromEnv reads NIP05_TIMEOUT_MS, NIP05_ALLOW_INSECURE and
// NIP05_DEBUG, the application boundary source for Config.
func ConfigFromEnv() *Config {
	cfg := &Config{Timeout: defaultTimeout}
	if ms := os.Getenv("NIP05_TIMEOUT_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); !chk.D(err) && v > 0 {
			cfg.Timeout = time.Duration(v) * time.Millisecond
		}
	}
	cfg.AllowInsecure = os.Getenv("NIP05_ALLOW_INSECURE") != ""
	cfg.Debug = os.Getenv("NIP05_DEBUG") != ""
	return cfg
}

func (cfg *Config) trace(format string, a ...interface{}) {
	if cfg.Debug {
		fmt.Fprintf(os.Stderr, "nip05: "+format+"\n", a...)
	}
}

// WellKnownResponse is the shape of the nostr.json document.
type WellKnownResponse struct {
	Names  map[string]string   `json:"names"`            // NIP-05
	Relays map[string][]string `json:"relays,omitempty"` // NIP-35
}

// Parse splits an identifier into its lowercased local and domain parts.
// An identifier with no local part gets the literal `_`.
func Parse(identifier string) (local, domain string, err error) {
	m := identifierRegex.FindStringSubmatch(identifier)
	if m == nil {
		return "", "", log.E.Err("not a valid nip-05 identifier: %q", identifier)
	}
	local = strings.ToLower(m[2])
	if local == "" {
		local = "_"
	}
	domain = strings.ToLower(m[3])
	return
}

// NormalizeIdentifier strips the `_@` prefix of a root identifier for
// display.
func NormalizeIdentifier(fullname string) string {
	if strings.HasPrefix(fullname, "_@") {
		return fullname[2:]
	}
	return fullname
}

func (cfg *Config) client() *http.Client {
	transport := &http.Transport{}
	if cfg.AllowInsecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// Fetch retrieves and decodes the well-known document of a domain. A
// non-empty name is passed as the `?name=` query so large documents can be
// served incrementally.
func Fetch(c context.T, domain, name string, cfg *Config) (
	res *WellKnownResponse, err error) {

	if cfg == nil {
		cfg = ConfigFromEnv()
	}
	u := fmt.Sprintf("https://%s/.well-known/nostr.json", domain)
	if name != "" {
		u += "?name=" + name
	}
	cfg.trace("GET %s", u)
	var req *http.Request
	if req, err = http.NewRequestWithContext(c, http.MethodGet, u,
		nil); chk.E(err) {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	var resp *http.Response
	if resp, err = cfg.client().Do(req); err != nil {
		cfg.trace("fetch failed: %v", err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		cfg.trace("status %d", resp.StatusCode)
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	res = &WellKnownResponse{}
	if err = json.NewDecoder(resp.Body).Decode(res); chk.D(err) {
		return nil, fmt.Errorf("failed to decode json response: %w", err)
	}
	cfg.trace("got %d names", len(res.Names))
	return
}

// Lookup resolves an identifier to a profile pointer. It first queries the
// name-filtered endpoint and falls back to the full document on a miss.
func Lookup(c context.T, identifier string, cfg *Config) (
	pp *pointers.Profile, err error) {

	if cfg == nil {
		cfg = ConfigFromEnv()
	}
	local, domain, err := Parse(identifier)
	if err != nil {
		return nil, err
	}
	res, err := Fetch(c, domain, local, cfg)
	if err != nil {
		return nil, err
	}
	if _, ok := res.Names[local]; !ok {
		// some hosts ignore the name query; retry on the full document
		cfg.trace("%s absent in filtered response, fetching full document",
			local)
		if res, err = Fetch(c, domain, "", cfg); err != nil {
			return nil, err
		}
	}
	return fromDocument(res, local)
}

// fromDocument extracts and validates the profile pointer for a name from
// a decoded well-known document.
func fromDocument(res *WellKnownResponse, local string) (
	pp *pointers.Profile, err error) {

	pubkey, ok := res.Names[local]
	if !ok {
		return nil, ErrNotFound
	}
	if !keys.IsValidPublicKeyHex(strings.ToLower(pubkey)) {
		return nil, log.E.Err("nip-05 name %q maps to invalid pubkey %q",
			local, pubkey)
	}
	return &pointers.Profile{
		PublicKey: strings.ToLower(pubkey),
		Relays:    res.Relays[pubkey],
	}, nil
}

// Validate checks that an identifier resolves to the expected public key.
// A resolution miss returns ErrNotFound; a resolution to a different key
// returns ErrMismatch; both distinct so callers can report them apart.
func Validate(c context.T, identifier, expectedHexpub string,
	cfg *Config) (err error) {

	pp, err := Lookup(c, identifier, cfg)
	if err != nil {
		return err
	}
	if !strings.EqualFold(pp.PublicKey, expectedHexpub) {
		return ErrMismatch
	}
	return nil
}
