package tracking

import "strings"

// SourceType is the coarse traffic-source bucket recorded with each lead.
type SourceType string

const (
	SourcePaid    SourceType = "paid"
	SourceOrganic SourceType = "organic"
	SourceOwned   SourceType = "owned"
	SourceDirect  SourceType = "direct"
)

var (
	paidMediums   = []string{"cpc", "ppc", "paid", "paidsocial", "paid_social", "display"}
	ownedMediums  = []string{"email", "newsletter", "sms", "push", "owned"}
	searchEngines = []string{"google", "bing", "yahoo", "duckduckgo", "baidu", "yandex"}
)

// ClassifySourceType buckets the most recent touch (last, else first). The
// order of the checks is fixed; historical reports depend on it:
//
//  1. any click id                      -> paid
//  2. paid utm_medium                   -> paid
//  3. owned utm_medium                  -> owned
//  4. search engine referrer            -> organic
//  5. any utm_source                    -> organic
//  6. nothing                           -> direct
func ClassifySourceType(first, last *AttributionParams) SourceType {
	p := last
	if p == nil {
		p = first
	}
	if p == nil {
		return SourceDirect
	}

	if p.Gclid != "" || p.Fbclid != "" || p.Gbraid != "" || p.Wbraid != "" {
		return SourcePaid
	}
	if containsFold(paidMediums, p.UTMMedium) {
		return SourcePaid
	}
	if containsFold(ownedMediums, p.UTMMedium) {
		return SourceOwned
	}
	if isSearchEngineReferrer(p.Referrer) {
		return SourceOrganic
	}
	if p.UTMSource != "" {
		return SourceOrganic
	}
	return SourceDirect
}

func containsFold(set []string, v string) bool {
	if v == "" {
		return false
	}
	v = strings.ToLower(v)
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func isSearchEngineReferrer(referrer string) bool {
	if referrer == "" {
		return false
	}
	referrer = strings.ToLower(referrer)
	for _, engine := range searchEngines {
		if strings.Contains(referrer, engine) {
			return true
		}
	}
	return false
}
