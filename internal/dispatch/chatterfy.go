package dispatch

import (
	"net/url"
	"strconv"

	"github.com/MMVenjoyer/mvp-postback-helper/internal/domain"
)

// chatterfyTable maps kinds onto the Chatterfy metric-event vocabulary.
// Deposits report the cumulative sum; a redeposit uses its own event name so
// the tracker can tell first deposits from repeats.
var chatterfyTable = map[domain.EventKind]string{
	domain.KindDeposit:    "sumdep",
	domain.KindRedeposit:  "sumdep_postback_rd",
	domain.KindWithdrawal: "withdrawal",
	domain.KindRevenue:    "revenue",
}

// ChatterfyTarget notifies the Chatterfy tracker keyed by the user's click id.
type ChatterfyTarget struct {
	postbackURL string
}

func NewChatterfyTarget(postbackURL string) *ChatterfyTarget {
	return &ChatterfyTarget{postbackURL: postbackURL}
}

func (t *ChatterfyTarget) Name() string { return "chatterfy" }

func (t *ChatterfyTarget) Build(n Notification) (*Request, bool, string) {
	if t.postbackURL == "" {
		return nil, true, "target not configured"
	}
	event, ok := chatterfyTable[n.Kind]
	if !ok {
		return nil, true, "no mapping for kind " + n.Kind.String()
	}
	if n.ClickID == "" {
		return nil, true, "no clickid"
	}

	params := url.Values{}
	params.Set("clickid", n.ClickID)
	params.Set("event", event)

	switch n.Kind {
	case domain.KindDeposit, domain.KindRedeposit:
		params.Set("sumdep", formatAmount(n.TotalDepositsSum))
		params.Set("previous_dep", formatAmount(n.Amount))
	case domain.KindWithdrawal:
		params.Set("sum", formatAmount(n.Amount))
	case domain.KindRevenue:
		params.Set("value", formatAmount(n.Amount))
	}

	return &Request{URL: t.postbackURL, Params: params}, false, ""
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
