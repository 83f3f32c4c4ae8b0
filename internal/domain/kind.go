package domain

import "fmt"

// EventKind is the closed set of funnel milestones a postback can report.
type EventKind int

const (
	KindFirstMessage EventKind = iota
	KindRegistration
	KindDeposit
	KindRedeposit
	KindWithdrawal
	KindRevenue
	KindManagerAssignment
)

var kindNames = map[EventKind]string{
	KindFirstMessage:      "ftm",
	KindRegistration:      "reg",
	KindDeposit:           "dep",
	KindRedeposit:         "redep",
	KindWithdrawal:        "withdraw",
	KindRevenue:           "revenue",
	KindManagerAssignment: "manager",
}

// ParseKind maps a postback route name to its kind.
func ParseKind(name string) (EventKind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind: %q", name)
}

func (k EventKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// HasAmount reports whether postbacks of this kind carry a sum.
func (k EventKind) HasAmount() bool {
	switch k {
	case KindDeposit, KindRedeposit, KindWithdrawal, KindRevenue:
		return true
	}
	return false
}

// DepositClass reports whether the kind counts toward the deposit sequence
// (the incrementing tid slot sent to Keitaro).
func (k EventKind) DepositClass() bool {
	return k == KindDeposit || k == KindRedeposit
}

// DedupWindow picks the dedupe window for the kind. Amount-bearing kinds get
// the longer window because downstream retry delays are larger.
func (k EventKind) DedupWindow(short, long int) int {
	if k.HasAmount() {
		return long
	}
	return short
}
