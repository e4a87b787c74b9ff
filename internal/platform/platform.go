// Package platform maps listing URLs and stored platform codes to canonical
// auction/marketplace platforms.
package platform

import (
	"fmt"
	"net/url"
	"strings"
)

// Keys of the supported platforms.
const (
	BringATrailer  = "bat"
	RitchieBros    = "ritchie_bros"
	IronPlanet     = "ironplanet"
	CarsAndBids    = "cars_and_bids"
	RMSothebys     = "rm_sothebys"
	Bonhams        = "bonhams"
	Mecum          = "mecum"
	BarrettJackson = "barrett_jackson"
	CollectingCars = "collecting_cars"
	PCarMarket     = "pcarmarket"
	EbayMotors     = "ebay_motors"
	Ebay           = "ebay"

	// Unknown is returned for a recognisable signal that matches no entry.
	Unknown = "unknown"
)

// Entry is one row of the platform table.
type Entry struct {
	Key     string
	Name    string
	Domains []string // host substrings, matched in order
	Aliases []string // alternative stored codes

	// ProfileFormat builds a member profile URL from a handle. Empty means
	// the platform has no public member pages we link to.
	ProfileFormat string
}

// Table is the ordered detection table. The first matching entry wins.
var Table = []Entry{
	{
		Key: BringATrailer, Name: "Bring a Trailer",
		Domains: []string{"bringatrailer.com"}, Aliases: []string{"bringatrailer", "bring_a_trailer"},
		ProfileFormat: "https://bringatrailer.com/member/%s/",
	},
	{
		Key: RitchieBros, Name: "Ritchie Bros.",
		Domains: []string{"rbauction.com", "ritchiebros.com"}, Aliases: []string{"rbauction", "ritchie"},
	},
	{
		Key: IronPlanet, Name: "IronPlanet",
		Domains: []string{"ironplanet.com"}, Aliases: []string{"iron_planet"},
	},
	{
		Key: CarsAndBids, Name: "Cars & Bids",
		Domains: []string{"carsandbids.com"}, Aliases: []string{"carsandbids", "cnb"},
		ProfileFormat: "https://carsandbids.com/user/%s",
	},
	{
		Key: RMSothebys, Name: "RM Sotheby's",
		Domains: []string{"rmsothebys.com"}, Aliases: []string{"rmsothebys", "rm"},
	},
	{
		Key: Bonhams, Name: "Bonhams",
		Domains: []string{"bonhams.com"},
	},
	{
		Key: Mecum, Name: "Mecum Auctions",
		Domains: []string{"mecum.com"},
	},
	{
		Key: BarrettJackson, Name: "Barrett-Jackson",
		Domains: []string{"barrett-jackson.com"}, Aliases: []string{"barrettjackson"},
	},
	{
		Key: CollectingCars, Name: "Collecting Cars",
		Domains: []string{"collectingcars.com"}, Aliases: []string{"collectingcars"},
		ProfileFormat: "https://collectingcars.com/profile/%s",
	},
	{
		Key: PCarMarket, Name: "PCARMARKET",
		Domains: []string{"pcarmarket.com"},
	},
	{
		Key: EbayMotors, Name: "eBay Motors",
		Domains: []string{"ebay.com/motors", "motors.ebay.com", "ebaymotors.com"}, Aliases: []string{"ebaymotors"},
	},
	// General eBay listings; must stay after eBay Motors.
	{
		Key: Ebay, Name: "eBay",
		Domains: []string{"ebay.com"},
	},
}

// Primary is the conservative default used when no signal exists at all.
var Primary = Table[0]

// Platform is the result of classification.
type Platform struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Known reports whether the platform matched a table entry.
func (p Platform) Known() bool {
	return p.Key != "" && p.Key != Unknown
}

// Classify resolves a platform from a listing URL and/or a stored platform
// code. Precedence: URL domain, then stored code. A URL or code that matches
// nothing yields Unknown with the raw domain (or code) as display name; the
// primary platform is returned only when both inputs are empty.
func Classify(rawURL, code string) Platform {
	host, path := hostOf(rawURL)
	if host != "" {
		if e, ok := byHost(host, path); ok {
			return e.platform()
		}
	}

	code = strings.ToLower(strings.TrimSpace(code))
	if code != "" {
		if e, ok := Lookup(code); ok {
			return e.platform()
		}
	}

	switch {
	case host != "":
		return Platform{Key: Unknown, Name: strings.TrimPrefix(host, "www.")}
	case code != "":
		return Platform{Key: Unknown, Name: code}
	default:
		return Primary.platform()
	}
}

// Lookup finds an entry by key or alias.
func Lookup(code string) (Entry, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, e := range Table {
		if e.Key == code {
			return e, true
		}
		for _, a := range e.Aliases {
			if a == code {
				return e, true
			}
		}
	}
	return Entry{}, false
}

// DisplayName returns the human-readable name for a stored platform code.
func DisplayName(code string) string {
	return Classify("", code).Name
}

// SupportsIdentity reports whether usernames on the platform can be linked
// to member profiles.
func SupportsIdentity(code string) bool {
	e, ok := Lookup(code)
	return ok && e.ProfileFormat != ""
}

// ProfileURL builds the public member page for handle, or "" when the
// platform has none.
func ProfileURL(code, handle string) string {
	e, ok := Lookup(code)
	if !ok || e.ProfileFormat == "" || handle == "" {
		return ""
	}
	return fmt.Sprintf(e.ProfileFormat, url.PathEscape(handle))
}

func (e Entry) platform() Platform {
	return Platform{Key: e.Key, Name: e.Name}
}

// byHost matches domain substrings against the host. Path-scoped domains
// such as "ebay.com/motors" are matched against host+path.
func byHost(host, path string) (Entry, bool) {
	for _, e := range Table {
		for _, d := range e.Domains {
			target := host
			if strings.Contains(d, "/") {
				target = host + path
			}
			if strings.Contains(target, d) {
				return e, true
			}
		}
	}
	return Entry{}, false
}

// hostOf extracts the lowercased host and path from a URL. Scheme-less input
// is retried with https:// prepended.
func hostOf(raw string) (host, path string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		u, err = url.Parse("https://" + raw)
		if err != nil || u.Host == "" {
			return "", ""
		}
	}
	return strings.ToLower(u.Hostname()), strings.ToLower(u.EscapedPath())
}
