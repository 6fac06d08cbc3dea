package scoring

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/guildtools/stockpile/internal/model"
)

// Legacy ledger rows carry no structured delta; the applied change has
// to be recovered from the fixed phrasing templates of the details
// text. Parse failure is never fatal, it just scores zero.
var (
	reInitial   = regexp.MustCompile(`초기:\s*(\d+)개`)
	reAddColon  = regexp.MustCompile(`추가:\s*\+?(\d+)개`)
	reSubColon  = regexp.MustCompile(`차감:\s*-?(\d+)개`)
	reArrow     = regexp.MustCompile(`(\d+)\s*개?\s*(?:→|->)\s*(\d+)\s*개?`)
	reAddSuffix = regexp.MustCompile(`(\d+)개 추가`)
	reSubSuffix = regexp.MustCompile(`(\d+)개 차감`)
	reCraft     = regexp.MustCompile(`(\d+)개 제작`)
	reCount     = regexp.MustCompile(`(\d+)개`)
)

// ParseSignedDelta recovers the applied signed quantity change from a
// ledger entry's action and details text. Unknown or malformed text
// returns 0.
func ParseSignedDelta(action, details string) int64 {
	switch action {
	case model.ActionRemove, model.ActionReset:
		return 0

	case model.ActionAdd:
		if m := reInitial.FindStringSubmatch(details); m != nil {
			return atoi(m[1])
		}
		return consumedOrReturned(details)

	case model.ActionUpdateQuantity, model.ActionUpdateRequired, model.ActionEditRequired:
		if m := reAddColon.FindStringSubmatch(details); m != nil {
			return atoi(m[1])
		}
		if m := reSubColon.FindStringSubmatch(details); m != nil {
			return -atoi(m[1])
		}
		if m := reArrow.FindStringSubmatch(details); m != nil {
			return atoi(m[2]) - atoi(m[1])
		}
		if m := reAddSuffix.FindStringSubmatch(details); m != nil {
			return atoi(m[1])
		}
		if m := reSubSuffix.FindStringSubmatch(details); m != nil {
			return -atoi(m[1])
		}
		return consumedOrReturned(details)

	case model.ActionCraft:
		if m := reCraft.FindStringSubmatch(details); m != nil {
			return atoi(m[1])
		}
		return consumedOrReturned(details)

	default:
		return consumedOrReturned(details)
	}
}

// consumedOrReturned handles the material-propagation phrasings: text
// mentioning 소모 (consumed) scores negative, 반환 (returned) positive.
func consumedOrReturned(details string) int64 {
	m := reCount.FindStringSubmatch(details)
	if m == nil {
		return 0
	}
	switch {
	case strings.Contains(details, "소모"):
		return -atoi(m[1])
	case strings.Contains(details, "반환"):
		return atoi(m[1])
	}
	return 0
}

func atoi(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
