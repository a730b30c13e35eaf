// silexd is an inspection tool for the silex protocol core: key
// generation, bech32 entity encoding and decoding, NIP-05 lookups and
// wallet connect URI parsing.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/silex-im/silex/pkg/context"
	"github.com/silex-im/silex/pkg/nostr/bech32encoding"
	"github.com/silex-im/silex/pkg/nostr/keys"
	"github.com/silex-im/silex/pkg/nostr/nip47"
	"github.com/silex-im/silex/pkg/nostr/nip5"
	"github.com/silex-im/silex/pkg/nostr/nip54"
	"github.com/silex-im/silex/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

type GenKeyCmd struct{}

type EncodeCmd struct {
	Pubkey string `arg:"--pubkey" help:"hex public key to encode as npub"`
	Seckey string `arg:"--seckey" help:"hex secret key to encode as nsec"`
	Note   string `arg:"--note" help:"hex event id to encode as note"`
}

type DecodeCmd struct {
	Entity string `arg:"positional,required" help:"bech32 entity to decode"`
}

type Nip05Cmd struct {
	Identifier string `arg:"positional,required" help:"identifier to resolve (user@domain or domain)"`
	Timeout    int    `arg:"-t,--timeout" default:"5000" help:"fetch timeout in milliseconds"`
	Insecure   bool   `arg:"--insecure" help:"skip TLS verification (testing only)"`
}

type NwcCmd struct {
	URI string `arg:"positional,required" help:"nostr+walletconnect:// URI to parse"`
}

type SlugCmd struct {
	Title  string `arg:"positional,required" help:"article title to slugify"`
	Pubkey string `arg:"--pubkey" help:"author pubkey, prints the naddr too"`
}

type Config struct {
	GenKey   *GenKeyCmd `arg:"subcommand:genkey" help:"generate a new key pair"`
	Encode   *EncodeCmd `arg:"subcommand:encode" help:"encode hex keys and ids to bech32"`
	Decode   *DecodeCmd `arg:"subcommand:decode" help:"decode any bech32 entity"`
	Nip05    *Nip05Cmd  `arg:"subcommand:nip05" help:"resolve a NIP-05 identifier"`
	Nwc      *NwcCmd    `arg:"subcommand:nwc" help:"parse a wallet connect URI"`
	Slug     *SlugCmd   `arg:"subcommand:slug" help:"normalize a wiki article title"`
	LogLevel string     `arg:"--loglevel" default:"info" help:"set log level [off,fatal,error,warn,info,debug,trace]"`
}

func main() {
	var cfg Config
	p := arg.MustParse(&cfg)
	setLogLevel(cfg.LogLevel)
	var err error
	switch {
	case cfg.GenKey != nil:
		err = genKey()
	case cfg.Encode != nil:
		err = encode(cfg.Encode)
	case cfg.Decode != nil:
		err = decode(cfg.Decode)
	case cfg.Nip05 != nil:
		err = lookup(cfg.Nip05)
	case cfg.Nwc != nil:
		err = parseNwc(cfg.Nwc)
	case cfg.Slug != nil:
		err = slugify(cfg.Slug)
	default:
		p.WriteHelp(os.Stderr)
		os.Exit(1)
	}
	if err != nil {
		log.E.Ln(err)
		os.Exit(1)
	}
}

func setLogLevel(name string) {
	levels := map[string]int{
		"off":   slog.Off,
		"fatal": slog.Fatal,
		"error": slog.Error,
		"warn":  slog.Warn,
		"info":  slog.Info,
		"debug": slog.Debug,
		"trace": slog.Trace,
	}
	if l, ok := levels[name]; ok {
		slog.SetLogLevel(l)
	}
}

func genKey() (err error) {
	sk := keys.GeneratePrivateKey()
	var pub string
	if pub, err = keys.GetPublicKey(sk); chk.E(err) {
		return
	}
	var nsec, npub string
	if nsec, err = bech32encoding.EncodePrivateKey(sk); chk.E(err) {
		return
	}
	if npub, err = bech32encoding.EncodePublicKey(pub); chk.E(err) {
		return
	}
	fmt.Printf("seckey %s\npubkey %s\nnsec   %s\nnpub   %s\n",
		sk, pub, nsec, npub)
	return
}

func encode(cmd *EncodeCmd) (err error) {
	var s string
	switch {
	case cmd.Pubkey != "":
		s, err = bech32encoding.EncodePublicKey(cmd.Pubkey)
	case cmd.Seckey != "":
		s, err = bech32encoding.EncodePrivateKey(cmd.Seckey)
	case cmd.Note != "":
		s, err = bech32encoding.EncodeNote(cmd.Note)
	default:
		return fmt.Errorf("nothing to encode, pass --pubkey, --seckey or --note")
	}
	if err != nil {
		return
	}
	fmt.Println(s)
	return
}

func decode(cmd *DecodeCmd) (err error) {
	prefix, value, err := bech32encoding.Decode(cmd.Entity)
	if err != nil {
		return
	}
	fmt.Printf("%s %v\n", prefix, value)
	return
}

func lookup(cmd *Nip05Cmd) (err error) {
	cfg := &nip5.Config{
		Timeout:       time.Duration(cmd.Timeout) * time.Millisecond,
		AllowInsecure: cmd.Insecure,
	}
	c, cancel := context.Timeout(context.Bg(), cfg.Timeout)
	defer cancel()
	pp, err := nip5.Lookup(c, cmd.Identifier, cfg)
	if err != nil {
		return
	}
	fmt.Printf("pubkey %s\n", pp.PublicKey)
	for _, r := range pp.Relays {
		fmt.Printf("relay  %s\n", r)
	}
	return
}

func parseNwc(cmd *NwcCmd) (err error) {
	u, err := nip47.ParseURI(cmd.URI)
	if err != nil {
		return
	}
	fmt.Printf("wallet %s\n", u.WalletPubKey)
	for _, r := range u.Relays {
		fmt.Printf("relay  %s\n", r)
	}
	if u.Lud16 != "" {
		fmt.Printf("lud16  %s\n", u.Lud16)
	}
	return
}

func slugify(cmd *SlugCmd) (err error) {
	slug := nip54.NormalizeSlug(cmd.Title)
	fmt.Println(slug)
	if cmd.Pubkey != "" {
		var naddr string
		if naddr, err = nip54.BuildNaddr(cmd.Pubkey, slug, nil); err != nil {
			return
		}
		fmt.Println(naddr)
	}
	return
}
