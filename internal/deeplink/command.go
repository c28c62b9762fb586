package deeplink

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Kind is the closed set of recognized deep-link commands. Everything
// downstream branches on the parsed command, never on the raw URL.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindPaymentReturn
	KindReferral
	KindTopUpSuccess
)

// Command is a parsed, validated deep link.
type Command struct {
	Kind         Kind
	ReferralCode string // normalized to uppercase, KindReferral only
	TopUpOrderID string // validated UUID, KindTopUpSuccess only
}

var referralCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{8}$`)

// Parse normalizes an externally delivered URL into a command. Malformed or
// unknown links map to KindUnrecognized; the boundary rejects silently
// instead of crashing on untrusted input.
func Parse(raw string) Command {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Command{Kind: KindUnrecognized}
	}

	// Custom app schemes put the first path segment in the host
	// (app://payment-complete parses with Host "payment-complete"), while
	// universal https links carry a real host to skip over.
	path := strings.Trim(u.Path, "/")
	if u.Scheme != "http" && u.Scheme != "https" {
		path = strings.Trim(u.Host+"/"+path, "/")
	}
	segments := strings.Split(path, "/")
	if len(segments) == 0 || segments[0] == "" {
		return Command{Kind: KindUnrecognized}
	}

	switch segments[0] {
	case "payment-complete":
		if len(segments) != 1 {
			return Command{Kind: KindUnrecognized}
		}
		return Command{Kind: KindPaymentReturn}

	case "r", "ref":
		if len(segments) != 2 || !referralCodePattern.MatchString(segments[1]) {
			return Command{Kind: KindUnrecognized}
		}
		return Command{Kind: KindReferral, ReferralCode: strings.ToUpper(segments[1])}

	case "dashboard":
		if len(segments) != 1 || u.Query().Get("topup") != "success" {
			return Command{Kind: KindUnrecognized}
		}
		orderID := u.Query().Get("order_id")
		if _, err := uuid.Parse(orderID); err != nil {
			return Command{Kind: KindUnrecognized}
		}
		return Command{Kind: KindTopUpSuccess, TopUpOrderID: orderID}

	default:
		return Command{Kind: KindUnrecognized}
	}
}
