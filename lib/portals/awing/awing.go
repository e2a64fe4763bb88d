// Package awing authenticates against the Awing Connect captive portal
// used on Wi-MESH networks. The flow is a fixed six-step sequence: scan the
// gateway redirect page, handshake with the vendor, verify the device,
// fetch the hidden credentials, report analytics, and finally submit the
// credentials to the router. Every step depends on the previous one's
// output, so none may be skipped or reordered.
package awing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"wimesh/lib/htmlextract"
	"wimesh/lib/netcheck"
	"wimesh/lib/webclient"

	"dario.cat/mergo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("portals/awing")

const (
	defaultGatewayURL = "http://login.net.vn"
	defaultBaseURL    = "http://v1.awingconnect.vn"
	fallbackLoginURL  = "http://free.wi-mesh.vn/login"
)

var ErrAuthFormNotFound = errors.New("contentAuthenForm not found in response")

type Config struct {
	// Name is the human-readable name for this portal instance.
	Name string
	// SSIDs this portal handles.
	SSIDs []string
	// MACAddress used for authentication; auto-detected when empty.
	MACAddress string
	// HTTP tunes the underlying client.
	HTTP webclient.Options

	// GatewayURL and BaseURL override the production endpoints in tests.
	GatewayURL string
	BaseURL    string
}

// Portal talks to one Awing deployment. It owns its HTTP client, so the
// vendor session cookies carry over between Connect calls but are never
// shared with another portal.
type Portal struct {
	cfg        Config
	gatewayURL string
	baseURL    string
	http       *webclient.Client
	probe      netcheck.Probe

	// populated as the step sequence advances; only valid within one
	// Connect call
	gateway      *htmlextract.GatewayParams
	handshakeURL string
}

func NewPortal(cfg Config) (*Portal, error) {
	client, err := webclient.NewClient(cfg.HTTP)
	if err != nil {
		return nil, err
	}

	if cfg.MACAddress == "" {
		mac, err := netcheck.DetectMAC()
		if err != nil {
			slog.Warn("could not auto-detect mac address", "portal", cfg.Name, "err", err)
		} else {
			slog.Debug("auto-detected mac address", "portal", cfg.Name, "mac", mac)
			cfg.MACAddress = mac
		}
	}

	gatewayURL := cfg.GatewayURL
	if gatewayURL == "" {
		gatewayURL = defaultGatewayURL
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Portal{
		cfg:        cfg,
		gatewayURL: gatewayURL,
		baseURL:    baseURL,
		http:       client,
	}, nil
}

func (p *Portal) Name() string {
	return p.cfg.Name
}

func (p *Portal) SSIDs() []string {
	return p.cfg.SSIDs
}

func (p *Portal) MatchesSSID(ssid string) bool {
	return slices.Contains(p.cfg.SSIDs, ssid)
}

func (p *Portal) IsAuthenticated(ctx context.Context) bool {
	return p.probe.HasConnectivity(ctx)
}

func (p *Portal) Connect(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "awing:Connect")
	defer span.End()

	if err := p.scanGateway(ctx); err != nil {
		return p.stepFailed(span, "scan gateway", err)
	}
	if err := p.handshake(ctx); err != nil {
		return p.stepFailed(span, "handshake", err)
	}
	protocolCtx, err := p.verifyDevice(ctx)
	if err != nil {
		return p.stepFailed(span, "verify device", err)
	}
	creds, err := p.getCredentials(ctx, protocolCtx)
	if err != nil {
		return p.stepFailed(span, "get credentials", err)
	}
	if err := p.sendAnalytics(ctx, protocolCtx); err != nil {
		return p.stepFailed(span, "send analytics", err)
	}
	if err := p.loginRouter(ctx, creds); err != nil {
		return p.stepFailed(span, "login to router", err)
	}

	slog.InfoContext(ctx, "connected successfully", "portal", p.cfg.Name)
	return nil
}

func (p *Portal) stepFailed(span trace.Span, step string, err error) error {
	err = fmt.Errorf("%s: %w", step, err)
	span.RecordError(err)
	span.SetStatus(codes.Error, step)
	return err
}

// scanGateway fetches the captive redirect page and extracts the gateway
// parameters from it.
func (p *Portal) scanGateway(ctx context.Context) error {
	slog.InfoContext(ctx, "scanning gateway", "portal", p.cfg.Name)

	res, err := p.http.Get(ctx, p.gatewayURL)
	if err != nil {
		return err
	}

	gw, err := htmlextract.ParseGatewayParams(res.String())
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "found gateway", "ip", gw.IP)

	p.gateway = &gw
	return nil
}

// handshake registers the device with the vendor. The handshake URL doubles
// as the Referer for every later API call because the server enforces
// same-origin style checks.
func (p *Portal) handshake(ctx context.Context) error {
	if p.gateway == nil {
		return errors.New("gateway not scanned")
	}
	gw := p.gateway
	slog.InfoContext(ctx, "handshaking", "portal", p.cfg.Name, "mac", p.cfg.MACAddress)

	handshakeURL := fmt.Sprintf(
		"%s/login?serial=%s&client_mac=%s&client_ip=%s&userurl=%s/&login_url=%s&chap_id=%s&chap_challenge=%s",
		p.baseURL,
		p.cfg.MACAddress,
		gw.MAC,
		gw.IP,
		p.gatewayURL,
		url.QueryEscape(gw.LinkLoginOnly),
		gw.ChapID,
		gw.ChapChallenge,
	)

	_, err := p.http.GetWithHeaders(ctx, handshakeURL, map[string]string{
		"Referer": handshakeURL,
		"Origin":  p.baseURL,
	})
	if err != nil {
		return err
	}

	p.handshakeURL = handshakeURL
	return nil
}

func (p *Portal) apiHeaders() map[string]string {
	headers := map[string]string{"Origin": p.baseURL}
	if p.handshakeURL != "" {
		headers["Referer"] = p.handshakeURL
	}
	return headers
}

// verifyDevice asks the vendor for the session context that all later
// requests thread through.
func (p *Portal) verifyDevice(ctx context.Context) (map[string]any, error) {
	slog.InfoContext(ctx, "verifying device", "portal", p.cfg.Name)

	res, err := p.http.PostJSONWithHeaders(
		ctx,
		p.baseURL+"/Home/VerifyUrl",
		map[string]any{},
		p.apiHeaders(),
	)
	if err != nil {
		return nil, err
	}

	var protocolCtx map[string]any
	if err := json.Unmarshal(res.Body(), &protocolCtx); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	return protocolCtx, nil
}

type captiveContext struct {
	ContentAuthenForm *string `json:"contentAuthenForm"`
}

type customerResponse struct {
	CaptiveContext    *captiveContext `json:"captiveContext"`
	ContentAuthenForm *string         `json:"contentAuthenForm"`
}

// getCredentials fetches the customer content and pulls the hidden login
// credentials out of the authentication form embedded in it.
func (p *Portal) getCredentials(ctx context.Context, protocolCtx map[string]any) (htmlextract.Credentials, error) {
	slog.InfoContext(ctx, "getting credentials", "portal", p.cfg.Name)

	payload := map[string]any{
		"captiveContextDTO":      protocolCtx,
		"customer":               map[string]any{"gender": 1, "name": ""},
		"customerRequiredFields": []any{},
	}
	// the server expects every context field repeated at the top level
	if err := mergo.Merge(&payload, protocolCtx, mergo.WithOverride); err != nil {
		return htmlextract.Credentials{}, err
	}

	res, err := p.http.PostJSONWithHeaders(
		ctx,
		p.baseURL+"/Content/GetCustomer",
		payload,
		p.apiHeaders(),
	)
	if err != nil {
		return htmlextract.Credentials{}, err
	}

	var data customerResponse
	if err := json.Unmarshal(res.Body(), &data); err != nil {
		return htmlextract.Credentials{}, fmt.Errorf("decode customer response: %w", err)
	}

	var formHTML *string
	if data.CaptiveContext != nil && data.CaptiveContext.ContentAuthenForm != nil {
		formHTML = data.CaptiveContext.ContentAuthenForm
	} else {
		formHTML = data.ContentAuthenForm
	}
	if formHTML == nil {
		return htmlextract.Credentials{}, ErrAuthFormNotFound
	}

	creds, err := htmlextract.ParseCredentials(*formHTML)
	if err != nil {
		return htmlextract.Credentials{}, err
	}
	slog.InfoContext(ctx, "got credentials", "username", creds.Username)
	return creds, nil
}

// sendAnalytics reports the authentication event. The server treats this as
// part of the flow, so a failure here fails the whole attempt.
func (p *Portal) sendAnalytics(ctx context.Context, protocolCtx map[string]any) error {
	slog.InfoContext(ctx, "sending analytics", "portal", p.cfg.Name)

	payload := map[string]any{
		"captiveContextDTO": protocolCtx,
		"analyticType":      "Authentication",
		"viewIndex":         1,
	}

	_, err := p.http.PostJSONWithHeaders(
		ctx,
		p.baseURL+"/Analytic/Send",
		payload,
		p.apiHeaders(),
	)
	return err
}

// loginRouter submits the extracted credentials to the gateway itself.
func (p *Portal) loginRouter(ctx context.Context, creds htmlextract.Credentials) error {
	if p.gateway == nil {
		return errors.New("gateway not scanned")
	}
	slog.InfoContext(ctx, "logging into router", "portal", p.cfg.Name)

	loginURL := p.gateway.LinkLoginOnly
	if loginURL == "" {
		loginURL = fallbackLoginURL
	}

	_, err := p.http.PostForm(ctx, loginURL, map[string]string{
		"username": creds.Username,
		"password": creds.Password,
		"dst":      p.baseURL + "/Success",
		"popup":    "false",
	})
	return err
}
