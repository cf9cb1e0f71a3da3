package ingest

import (
	"errors"
	"testing"
)

func TestPreflight(t *testing.T) {
	full := Credentials{
		KISAppKey:    "key",
		KISAppSecret: "secret",
		KISAccountNo: "1234567801",
		DARTAPIKey:   "dart-key",
	}

	tests := []struct {
		name        string
		req         *Request
		creds       Credentials
		wantMissing []string
	}{
		{
			name:  "all domains with full credentials",
			req:   &Request{RunTypes: []string{"all"}, Scope: ScopeAll, SourceProfile: ProfileAll},
			creds: full,
		},
		{
			name:        "prices without KIS key pair",
			req:         &Request{RunTypes: []string{"prices"}, Scope: ScopeSingle, SourceProfile: ProfileAll},
			creds:       Credentials{DARTAPIKey: "dart-key"},
			wantMissing: []string{KeyKISAppKey, KeyKISAppSecret},
		},
		{
			name:        "margins needs the account on top of the key pair",
			req:         &Request{RunTypes: []string{"margins"}, Scope: ScopeSingle, SourceProfile: ProfileAll},
			creds:       Credentials{KISAppKey: "key", KISAppSecret: "secret"},
			wantMissing: []string{KeyKISAccountNo},
		},
		{
			name:        "events needs the DART key",
			req:         &Request{RunTypes: []string{"events"}, Scope: ScopeSingle, SourceProfile: ProfileAll},
			creds:       Credentials{KISAppKey: "key", KISAppSecret: "secret"},
			wantMissing: []string{KeyDARTAPIKey},
		},
		{
			name:        "scope all needs the DART key even for prices",
			req:         &Request{RunTypes: []string{"prices"}, Scope: ScopeAll, SourceProfile: ProfileAll},
			creds:       Credentials{KISAppKey: "key", KISAppSecret: "secret"},
			wantMissing: []string{KeyDARTAPIKey},
		},
		{
			name:  "dart profile skips KIS requirements",
			req:   &Request{RunTypes: []string{"prices", "events"}, Scope: ScopeSingle, SourceProfile: ProfileDART},
			creds: Credentials{DARTAPIKey: "dart-key"},
		},
		{
			name:  "events alone never needs KIS",
			req:   &Request{RunTypes: []string{"events"}, Scope: ScopeSingle, SourceProfile: ProfileAll},
			creds: Credentials{DARTAPIKey: "dart-key"},
		},
		{
			name: "missing keys are reported together",
			req:  &Request{RunTypes: []string{"all"}, Scope: ScopeAll, SourceProfile: ProfileAll},
			wantMissing: []string{
				KeyKISAppKey, KeyKISAppSecret, KeyKISAccountNo, KeyDARTAPIKey,
			},
		},
		{
			name: "dry run skips the guard entirely",
			req:  &Request{RunTypes: []string{"all"}, Scope: ScopeAll, SourceProfile: ProfileAll, DryRun: true},
		},
		{
			name:        "whitespace credentials count as missing",
			req:         &Request{RunTypes: []string{"prices"}, Scope: ScopeSingle, SourceProfile: ProfileKIS},
			creds:       Credentials{KISAppKey: "  ", KISAppSecret: "secret"},
			wantMissing: []string{KeyKISAppKey},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Preflight(tt.req, tt.creds)

			if len(tt.wantMissing) == 0 {
				if err != nil {
					t.Fatalf("Preflight() = %v, want nil", err)
				}
				return
			}

			var mc *MissingCredentialError
			if !errors.As(err, &mc) {
				t.Fatalf("Preflight() = %v, want MissingCredentialError", err)
			}
			if len(mc.Keys) != len(tt.wantMissing) {
				t.Fatalf("missing keys = %v, want %v", mc.Keys, tt.wantMissing)
			}
			for i, key := range tt.wantMissing {
				if mc.Keys[i] != key {
					t.Errorf("missing key[%d] = %s, want %s", i, mc.Keys[i], key)
				}
			}
			if KindOf(err) != KindMissingCredential {
				t.Errorf("KindOf() = %s, want %s", KindOf(err), KindMissingCredential)
			}
		})
	}
}

func TestOrderedDomains(t *testing.T) {
	tests := []struct {
		name     string
		runTypes []string
		want     []Domain
	}{
		{"all expands in fixed order", []string{"all"}, DomainOrder},
		{"subset keeps fixed order", []string{"margins", "prices"}, []Domain{DomainPrices, DomainMargins}},
		{"duplicates collapse", []string{"prices", "prices"}, []Domain{DomainPrices}},
		{"case and spacing normalize", []string{" Prices ", "EVENTS"}, []Domain{DomainPrices, DomainEvents}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := orderedDomains(tt.runTypes)
			if len(got) != len(tt.want) {
				t.Fatalf("orderedDomains() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("domain[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}
