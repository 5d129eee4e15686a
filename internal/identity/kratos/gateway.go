// Package kratos adapts Ory Kratos native self-service flows to the engine's
// identity gateway interface.
package kratos

import (
	"context"
	"errors"
	"sync"

	ory "github.com/ory/client-go"

	"carebridge/internal/identity"
	"carebridge/pkg/requestcontext"
)

// Kratos UI message IDs the adapter needs to distinguish. See the Ory text
// message catalog.
const (
	msgDuplicateIdentity   = 4000007
	msgInvalidCredentials  = 4000006
	msgVerificationInvalid = 4070006
	msgVerificationExpired = 4070005
)

// Gateway drives Kratos native registration, login, and verification flows.
// Kratos owns credentials, hashing, and session issuance; the adapter only
// holds the session token returned by a successful login or registration so
// CurrentUser can resolve the ambient identity.
type Gateway struct {
	frontend ory.FrontendAPI

	mu           sync.RWMutex
	sessionToken string
}

// New constructs a gateway talking to the Kratos public endpoint at baseURL.
func New(baseURL string) *Gateway {
	cfg := ory.NewConfiguration()
	cfg.Servers = []ory.ServerConfiguration{{URL: baseURL}}
	client := ory.NewAPIClient(cfg)
	return &Gateway{frontend: client.FrontendAPI}
}

func (g *Gateway) SignUp(ctx context.Context, email, password, displayName string) (identity.SignUpResult, error) {
	flow, _, err := g.frontend.CreateNativeRegistrationFlow(ctx).Execute()
	if err != nil {
		return identity.SignUpResult{}, identity.ErrUnavailable
	}

	method := ory.UpdateRegistrationFlowWithPasswordMethod{
		Method:   "password",
		Password: password,
		Traits: map[string]interface{}{
			"email": email,
			"name":  displayName,
		},
	}
	body := ory.UpdateRegistrationFlowWithPasswordMethodAsUpdateRegistrationFlowBody(&method)

	result, _, err := g.frontend.UpdateRegistrationFlow(ctx).
		Flow(flow.Id).
		UpdateRegistrationFlowBody(body).
		Execute()
	if err != nil {
		if flowHasMessage(registrationFlowFromErr(err), msgDuplicateIdentity) {
			return identity.SignUpResult{}, identity.ErrDuplicateIdentity
		}
		return identity.SignUpResult{}, identity.ErrUnavailable
	}

	if token := result.SessionToken; token != nil {
		g.setSessionToken(*token)
	}

	requiresVerification := false
	for _, cw := range result.ContinueWith {
		if cw.ContinueWithVerificationUi != nil {
			requiresVerification = true
		}
	}
	return identity.SignUpResult{RequiresVerification: requiresVerification}, nil
}

func (g *Gateway) SignIn(ctx context.Context, email, password string) error {
	flow, _, err := g.frontend.CreateNativeLoginFlow(ctx).Execute()
	if err != nil {
		return identity.ErrUnavailable
	}

	method := ory.UpdateLoginFlowWithPasswordMethod{
		Method:     "password",
		Identifier: email,
		Password:   password,
	}
	body := ory.UpdateLoginFlowWithPasswordMethodAsUpdateLoginFlowBody(&method)

	result, _, err := g.frontend.UpdateLoginFlow(ctx).
		Flow(flow.Id).
		UpdateLoginFlowBody(body).
		Execute()
	if err != nil {
		if flowHasMessage(loginFlowFromErr(err), msgInvalidCredentials) {
			return identity.ErrInvalidCredentials
		}
		return identity.ErrUnavailable
	}

	if token := result.SessionToken; token != nil {
		g.setSessionToken(*token)
	}
	return nil
}

func (g *Gateway) SendVerificationCode(ctx context.Context, email string) error {
	flow, _, err := g.frontend.CreateNativeVerificationFlow(ctx).Execute()
	if err != nil {
		return identity.ErrUnavailable
	}

	method := ory.UpdateVerificationFlowWithCodeMethod{
		Method: "code",
		Email:  &email,
	}
	body := ory.UpdateVerificationFlowWithCodeMethodAsUpdateVerificationFlowBody(&method)

	_, _, err = g.frontend.UpdateVerificationFlow(ctx).
		Flow(flow.Id).
		UpdateVerificationFlowBody(body).
		Execute()
	if err != nil {
		return identity.ErrUnavailable
	}
	return nil
}

func (g *Gateway) VerifyCode(ctx context.Context, email, code string) error {
	flow, _, err := g.frontend.CreateNativeVerificationFlow(ctx).Execute()
	if err != nil {
		return identity.ErrUnavailable
	}

	method := ory.UpdateVerificationFlowWithCodeMethod{
		Method: "code",
		Email:  &email,
		Code:   &code,
	}
	body := ory.UpdateVerificationFlowWithCodeMethodAsUpdateVerificationFlowBody(&method)

	result, _, err := g.frontend.UpdateVerificationFlow(ctx).
		Flow(flow.Id).
		UpdateVerificationFlowBody(body).
		Execute()
	if err != nil {
		vf := verificationFlowFromErr(err)
		switch {
		case flowHasMessage(vf, msgVerificationExpired):
			return identity.ErrCodeExpired
		case flowHasMessage(vf, msgVerificationInvalid):
			return identity.ErrCodeInvalid
		default:
			return identity.ErrUnavailable
		}
	}

	// Kratos reports a bad code on the returned flow rather than as an error.
	if uiHasMessage(&result.Ui, msgVerificationInvalid) {
		return identity.ErrCodeInvalid
	}
	if uiHasMessage(&result.Ui, msgVerificationExpired) {
		return identity.ErrCodeExpired
	}
	return nil
}

func (g *Gateway) CurrentUser(ctx context.Context) (*identity.Identity, error) {
	// A token presented on the request wins over the one held from a login
	// performed through this process.
	token := requestcontext.SessionToken(ctx)
	if token == "" {
		token = g.getSessionToken()
	}
	if token == "" {
		return nil, nil
	}

	session, _, err := g.frontend.ToSession(ctx).XSessionToken(token).Execute()
	if err != nil {
		// An invalid or expired session means unauthenticated, not failure.
		var apiErr *ory.GenericOpenAPIError
		if errors.As(err, &apiErr) {
			return nil, nil
		}
		return nil, identity.ErrUnavailable
	}
	if session.Identity == nil {
		return nil, nil
	}

	out := &identity.Identity{ID: session.Identity.Id}
	if traits, ok := session.Identity.Traits.(map[string]interface{}); ok {
		if email, ok := traits["email"].(string); ok {
			out.Email = email
		}
		if name, ok := traits["name"].(string); ok {
			out.Name = name
		}
	}
	return out, nil
}

func (g *Gateway) setSessionToken(token string) {
	g.mu.Lock()
	g.sessionToken = token
	g.mu.Unlock()
}

func (g *Gateway) getSessionToken() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sessionToken
}

// registrationFlowFromErr digs the flow model out of a Kratos API error so UI
// messages can be inspected.
func registrationFlowFromErr(err error) *ory.UiContainer {
	var apiErr *ory.GenericOpenAPIError
	if !errors.As(err, &apiErr) {
		return nil
	}
	if flow, ok := apiErr.Model().(*ory.RegistrationFlow); ok {
		return &flow.Ui
	}
	if flow, ok := apiErr.Model().(ory.RegistrationFlow); ok {
		return &flow.Ui
	}
	return nil
}

func loginFlowFromErr(err error) *ory.UiContainer {
	var apiErr *ory.GenericOpenAPIError
	if !errors.As(err, &apiErr) {
		return nil
	}
	if flow, ok := apiErr.Model().(*ory.LoginFlow); ok {
		return &flow.Ui
	}
	if flow, ok := apiErr.Model().(ory.LoginFlow); ok {
		return &flow.Ui
	}
	return nil
}

func verificationFlowFromErr(err error) *ory.UiContainer {
	var apiErr *ory.GenericOpenAPIError
	if !errors.As(err, &apiErr) {
		return nil
	}
	if flow, ok := apiErr.Model().(*ory.VerificationFlow); ok {
		return &flow.Ui
	}
	if flow, ok := apiErr.Model().(ory.VerificationFlow); ok {
		return &flow.Ui
	}
	return nil
}

func flowHasMessage(ui *ory.UiContainer, messageID int) bool {
	return uiHasMessage(ui, messageID)
}

func uiHasMessage(ui *ory.UiContainer, messageID int) bool {
	if ui == nil {
		return false
	}
	for _, msg := range ui.Messages {
		if msg.Id == int64(messageID) {
			return true
		}
	}
	for _, node := range ui.Nodes {
		for _, msg := range node.Messages {
			if msg.Id == int64(messageID) {
				return true
			}
		}
	}
	return false
}
