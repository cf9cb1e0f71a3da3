package ingest

import "strings"

// Credential key names reported by preflight. Resolution of the values
// (environment vs. env file) is the caller's concern.
const (
	KeyKISAppKey    = "KIS_APP_KEY"
	KeyKISAppSecret = "KIS_APP_SECRET"
	KeyKISAccountNo = "KIS_ACCOUNT_NO"
	KeyDARTAPIKey   = "DART_API_KEY"
)

// Preflight validates that every credential the requested domain/profile
// combination needs is present, before any work item executes. Rules are
// applied independently and unioned:
//
//   - prices, fundamental, financials or margins with a KIS-reaching
//     profile need the app key pair
//   - margins with a KIS-reaching profile additionally needs the account
//   - scope=all or events need the DART key
//
// Dry runs skip the guard entirely.
func Preflight(req *Request, creds Credentials) error {
	if req.DryRun {
		return nil
	}

	domains := resolveDomains(req.RunTypes)
	kisProfile := req.SourceProfile == ProfileAll || req.SourceProfile == ProfileKIS

	needKIS := kisProfile && (domains[DomainPrices] || domains[DomainFundamental] || domains[DomainFinancials] || domains[DomainMargins])
	needAccount := kisProfile && domains[DomainMargins]
	needDART := req.Scope == ScopeAll || domains[DomainEvents]

	var missing []string
	if needKIS {
		if strings.TrimSpace(creds.KISAppKey) == "" {
			missing = append(missing, KeyKISAppKey)
		}
		if strings.TrimSpace(creds.KISAppSecret) == "" {
			missing = append(missing, KeyKISAppSecret)
		}
	}
	if needAccount && strings.TrimSpace(creds.KISAccountNo) == "" {
		missing = append(missing, KeyKISAccountNo)
	}
	if needDART && strings.TrimSpace(creds.DARTAPIKey) == "" {
		missing = append(missing, KeyDARTAPIKey)
	}

	if len(missing) > 0 {
		return &MissingCredentialError{Keys: missing}
	}
	return nil
}

// resolveDomains expands run types ("all" included) into a domain set
func resolveDomains(runTypes []string) map[Domain]bool {
	domains := make(map[Domain]bool)
	for _, rt := range runTypes {
		rt = strings.ToLower(strings.TrimSpace(rt))
		if rt == RunTypeAll {
			for _, d := range DomainOrder {
				domains[d] = true
			}
			continue
		}
		domains[Domain(rt)] = true
	}
	return domains
}

// orderedDomains returns the requested domains in fixed execution order
func orderedDomains(runTypes []string) []Domain {
	set := resolveDomains(runTypes)
	var out []Domain
	for _, d := range DomainOrder {
		if set[d] {
			out = append(out, d)
		}
	}
	return out
}
