// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"context"
	"net/http"
	"testing"

	"github.com/sapcc/go-bits/httpapi"

	secretsapi "github.com/sapcc/arcanum/internal/api/secrets"
	sessionapi "github.com/sapcc/arcanum/internal/api/session"
	"github.com/sapcc/arcanum/internal/arcanum"
	"github.com/sapcc/arcanum/internal/auth"
)

// Setup is the fixture for unit tests: the full API wired up with the
// "unittest" mock drivers.
type Setup struct {
	Cfg     arcanum.Configuration
	AD      *AuthDriver
	MD      *MembershipDriver
	SD      *SecretStoreDriver
	SessD   *SessionDriver
	Auditor *Auditor
	Handler http.Handler
}

type setupParams struct {
	RateLimitEngine *arcanum.RateLimitEngine
}

// SetupOption is an option that can be given to NewSetup().
type SetupOption func(*setupParams)

// WithRateLimitEngine is a SetupOption. Tests that use it usually provide a
// Redis client backed by miniredis.
func WithRateLimitEngine(rle *arcanum.RateLimitEngine) SetupOption {
	return func(params *setupParams) {
		params.RateLimitEngine = rle
	}
}

// Drivers returns the driver bundle consumed by the authorization pipeline.
func (s *Setup) Drivers() auth.Drivers {
	return auth.Drivers{Auth: s.AD, Membership: s.MD, Store: s.SD}
}

// NewSetup prepares a test fixture.
func NewSetup(t *testing.T, opts ...SetupOption) *Setup {
	t.Helper()
	ctx := context.Background()

	var params setupParams
	for _, option := range opts {
		option(&params)
	}

	cfg := arcanum.Configuration{APIPublicHostname: "arcanum.example.org"}

	ad, err := arcanum.NewAuthDriver(ctx, "unittest", cfg, nil, nil)
	if err != nil {
		t.Fatal(err.Error())
	}
	md, err := arcanum.NewMembershipDriver(ctx, "unittest", nil)
	if err != nil {
		t.Fatal(err.Error())
	}
	sd, err := arcanum.NewSecretStoreDriver(ctx, "unittest", nil)
	if err != nil {
		t.Fatal(err.Error())
	}
	sessd, err := arcanum.NewSessionDriver(ctx, "unittest", cfg, nil)
	if err != nil {
		t.Fatal(err.Error())
	}

	s := Setup{
		Cfg:     cfg,
		AD:      ad.(*AuthDriver),
		MD:      md.(*MembershipDriver),
		SD:      sd.(*SecretStoreDriver),
		SessD:   sessd.(*SessionDriver),
		Auditor: &Auditor{},
	}
	s.Handler = httpapi.Compose(
		secretsapi.NewAPI(s.Drivers(), s.Auditor),
		sessionapi.NewAPI(s.AD, s.SessD, params.RateLimitEngine),
		httpapi.WithoutLogging(),
	)
	return &s
}
