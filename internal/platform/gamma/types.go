package gamma

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/alanyoungcy/slotclaim/internal/domain"
	"github.com/alanyoungcy/slotclaim/internal/timeparse"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether a flag is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// stringList unmarshals from a JSON array of strings or from a string that
// itself contains a JSON-encoded array (the Gamma API sends both, e.g.
// "[\"Up\",\"Down\"]" for outcomes and clobTokenIds).
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*l = nil
		return nil
	}
	var inner []string
	if err := json.Unmarshal([]byte(s), &inner); err != nil {
		// Not an encoded array. Tolerate and leave the list empty rather
		// than failing the record.
		*l = nil
		return nil
	}
	*l = inner
	return nil
}

// intList unmarshals payout numerators, tolerating numbers, numeric strings,
// and string-wrapped arrays. Entries that fail to parse are dropped.
type intList []int64

func (l *intList) UnmarshalJSON(data []byte) error {
	var raw []json.Number
	if err := json.Unmarshal(data, &raw); err == nil {
		*l = numbersToInts(raw)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*l = nil
		return nil
	}
	var inner []json.Number
	if err := json.Unmarshal([]byte(s), &inner); err != nil {
		*l = nil
		return nil
	}
	*l = numbersToInts(inner)
	return nil
}

func numbersToInts(raw []json.Number) []int64 {
	out := make([]int64, 0, len(raw))
	for _, n := range raw {
		if v, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			out = append(out, v)
		} else if f, err := strconv.ParseFloat(n.String(), 64); err == nil {
			out = append(out, int64(f))
		}
	}
	return out
}

// APIMarket is the loosely-typed Gamma market record. Field names have
// drifted across API versions, so most values are resolved through a
// best-available lookup chain rather than a single tag.
type APIMarket struct {
	Slug     string `json:"slug"`
	Question string `json:"question"`

	StartDate     string `json:"startDate"`
	GameStartTime string `json:"gameStartTime"`

	Resolved   flexBool `json:"resolved"`
	IsResolved flexBool `json:"isResolved"`
	Closed     flexBool `json:"closed"`

	ConditionID    string `json:"conditionId"`
	ConditionIDAlt string `json:"condition_id"`

	Winner          string `json:"winner"`
	WinningOutcome  string `json:"winningOutcome"`
	ResolvedOutcome string `json:"resolvedOutcome"`
	Resolution      string `json:"resolution"`

	PayoutNumerators    intList `json:"payoutNumerators"`
	PayoutNumeratorsAlt intList `json:"payout_numerators"`

	Outcomes stringList `json:"outcomes"`

	ClobTokenIDs    stringList `json:"clobTokenIds"`
	ClobTokenIDsAlt stringList `json:"clob_token_ids"`

	CollateralAddress  string `json:"collateralAddress"`
	Collateral         string `json:"collateral"`
	CollateralToken    string `json:"collateralToken"`
	CollateralTokenAlt string `json:"collateral_token"`
}

// slotStartRaw returns the best available raw slot-start value.
func (m *APIMarket) slotStartRaw() string {
	if m.StartDate != "" {
		return m.StartDate
	}
	return m.GameStartTime
}

// conditionID returns the first well-formed condition identifier (0x + 64
// hex), or "" when neither variant qualifies.
func (m *APIMarket) conditionID() string {
	for _, v := range []string{m.ConditionID, m.ConditionIDAlt} {
		if isConditionID(v) {
			return v
		}
	}
	return ""
}

func isConditionID(s string) bool {
	if !strings.HasPrefix(s, "0x") || len(s) != 66 {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// winner returns the first non-empty explicit winner-name variant.
func (m *APIMarket) winner() string {
	for _, v := range []string{m.Winner, m.WinningOutcome, m.ResolvedOutcome} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (m *APIMarket) payoutNumerators() []int64 {
	if len(m.PayoutNumerators) > 0 {
		return m.PayoutNumerators
	}
	return m.PayoutNumeratorsAlt
}

func (m *APIMarket) tokenIDs() []string {
	if len(m.ClobTokenIDs) > 0 {
		return m.ClobTokenIDs
	}
	return m.ClobTokenIDsAlt
}

// collateral returns the first plausible collateral address, or "" so the
// caller falls back to its configured default.
func (m *APIMarket) collateral() string {
	for _, v := range []string{m.CollateralAddress, m.Collateral, m.CollateralToken, m.CollateralTokenAlt} {
		if strings.HasPrefix(v, "0x") && len(v) == 42 {
			return v
		}
	}
	return ""
}

// ToMarketInstance projects the loose record into a domain.MarketInstance.
// Absent or malformed fields project to zero values; only the slot-start
// timestamp distinguishes "present but unparseable" (nil) for the lister's
// skip logic.
func (m *APIMarket) ToMarketInstance() domain.MarketInstance {
	mi := domain.MarketInstance{
		Slug:             m.Slug,
		Question:         m.Question,
		Resolved:         bool(m.Resolved) || bool(m.IsResolved),
		Closed:           bool(m.Closed),
		ConditionID:      m.conditionID(),
		Winner:           m.winner(),
		Resolution:       strings.TrimSpace(m.Resolution),
		PayoutNumerators: m.payoutNumerators(),
		Outcomes:         m.Outcomes,
		TokenIDs:         m.tokenIDs(),
		Collateral:       m.collateral(),
	}
	if t, ok := timeparse.Normalize(m.slotStartRaw()); ok {
		mi.SlotStart = &t
	}
	return mi
}
