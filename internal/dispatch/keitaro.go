package dispatch

import (
	"net/url"
	"strconv"

	"github.com/MMVenjoyer/mvp-postback-helper/internal/domain"
)

// depositTidBase is the first deposit's goal id on the tracker side; each
// subsequent deposit-class event takes the next slot.
const depositTidBase = 6

type keitaroMapping struct {
	status     string
	tid        int
	tidFromSeq bool
	payout     bool
}

// keitaroTable is the full status vocabulary of the Keitaro target. Kinds
// absent from the table are skipped for this target.
var keitaroTable = map[domain.EventKind]keitaroMapping{
	domain.KindFirstMessage: {status: "ftm", tid: 4},
	domain.KindRegistration: {status: "reg", tid: 5},
	domain.KindDeposit:      {status: "sale", tidFromSeq: true, payout: true},
	domain.KindRedeposit:    {status: "dep", tidFromSeq: true, payout: true},
}

// KeitaroTarget notifies the Keitaro tracker keyed by the user's sub id.
type KeitaroTarget struct {
	postbackURL string
}

func NewKeitaroTarget(postbackURL string) *KeitaroTarget {
	return &KeitaroTarget{postbackURL: postbackURL}
}

func (t *KeitaroTarget) Name() string { return "keitaro" }

func (t *KeitaroTarget) Build(n Notification) (*Request, bool, string) {
	if t.postbackURL == "" {
		return nil, true, "target not configured"
	}
	m, ok := keitaroTable[n.Kind]
	if !ok {
		return nil, true, "no mapping for kind " + n.Kind.String()
	}
	if n.SubID == "" {
		return nil, true, "no subid"
	}

	params := url.Values{}
	params.Set("subid", n.SubID)
	params.Set("status", m.status)

	tid := m.tid
	if m.tidFromSeq {
		tid = depositTidBase + n.DepositSeq
	}
	params.Set("tid", strconv.Itoa(tid))

	if m.payout {
		params.Set("payout", strconv.FormatFloat(n.Amount, 'f', -1, 64))
	}

	return &Request{URL: t.postbackURL, Params: params}, false, ""
}
