// Package keycloak implements idp.Client against the Keycloak admin REST API
// using a service account (client_credentials grant).
package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pointerhq/portal/internal/portal/idp"
	"github.com/pointerhq/portal/pkg/slogx"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// minPasswordLength mirrors the realm's password policy so obviously bad
// credentials are rejected before a round trip.
const minPasswordLength = 8

type Config struct {
	BaseURL      string
	Realm        string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

type Client struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu             sync.RWMutex
	accessToken    string
	tokenExpiresAt time.Time
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		realm:        cfg.Realm,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// userRepresentation is the subset of Keycloak's UserRepresentation we use.
type userRepresentation struct {
	ID        string `json:"id,omitempty"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Enabled   bool   `json:"enabled"`
}

type roleRepresentation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type credentialRepresentation struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

func (c *Client) adminURL(format string, args ...any) string {
	return c.baseURL + "/admin/realms/" + c.realm + fmt.Sprintf(format, args...)
}

// doAdminRequest performs an authenticated request against the admin API.
func (c *Client) doAdminRequest(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	token, err := c.getValidToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

func unexpectedStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("keycloak returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func (c *Client) FindByEmail(ctx context.Context, email string) (*idp.Account, error) {
	if !emailPattern.MatchString(email) {
		return nil, idp.ErrEmailInvalid
	}

	endpoint := c.adminURL("/users") + "?email=" + url.QueryEscape(email) + "&exact=true"
	resp, err := c.doAdminRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, idp.Wrap("find by email", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, idp.Wrap("find by email", unexpectedStatus(resp))
	}

	var users []userRepresentation
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, idp.Wrap("find by email", err)
	}
	if len(users) == 0 {
		return nil, nil
	}

	u := users[0]
	return &idp.Account{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Enabled:   u.Enabled,
	}, nil
}

func (c *Client) CreateAccount(ctx context.Context, name, email, password string) (string, error) {
	if !emailPattern.MatchString(email) {
		return "", idp.ErrEmailInvalid
	}
	if len(password) < minPasswordLength {
		return "", idp.ErrWeakPassword
	}

	first, last := splitName(name)
	resp, err := c.doAdminRequest(ctx, http.MethodPost, c.adminURL("/users"), userRepresentation{
		Username:  email,
		Email:     email,
		FirstName: first,
		LastName:  last,
		Enabled:   true,
	})
	if err != nil {
		return "", idp.Wrap("create account", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		// id comes back in the Location header, e.g. .../users/<uuid>
		location := resp.Header.Get("Location")
		id := location[strings.LastIndex(location, "/")+1:]
		if id == "" {
			return "", idp.Wrap("create account", fmt.Errorf("missing account id in Location header %q", location))
		}
		return id, nil
	case http.StatusConflict:
		return "", idp.ErrAccountAlreadyExists
	default:
		return "", idp.Wrap("create account", unexpectedStatus(resp))
	}
}

func (c *Client) SetPassword(ctx context.Context, accountID, password string) error {
	if len(password) < minPasswordLength {
		return idp.ErrWeakPassword
	}

	resp, err := c.doAdminRequest(ctx, http.MethodPut,
		c.adminURL("/users/%s/reset-password", accountID),
		credentialRepresentation{Type: "password", Value: password, Temporary: false})
	if err != nil {
		return idp.Wrap("set password", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return idp.Wrap("set password", unexpectedStatus(resp))
	}
	return nil
}

// lookupRole resolves a realm role name to its full representation, which the
// role-mapping endpoints require.
func (c *Client) lookupRole(ctx context.Context, name string) (roleRepresentation, error) {
	resp, err := c.doAdminRequest(ctx, http.MethodGet, c.adminURL("/roles/%s", url.PathEscape(name)), nil)
	if err != nil {
		return roleRepresentation{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var role roleRepresentation
		if err := json.NewDecoder(resp.Body).Decode(&role); err != nil {
			return roleRepresentation{}, err
		}
		return role, nil
	case http.StatusNotFound:
		return roleRepresentation{}, idp.ErrUnknownRole
	default:
		return roleRepresentation{}, unexpectedStatus(resp)
	}
}

func (c *Client) resolveRoles(ctx context.Context, names []string) ([]roleRepresentation, error) {
	roles := make([]roleRepresentation, 0, len(names))
	for _, name := range names {
		role, err := c.lookupRole(ctx, name)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func (c *Client) AssignRoles(ctx context.Context, accountID string, roles []string) error {
	if len(roles) == 0 {
		return idp.ErrInvalidArgument
	}

	reps, err := c.resolveRoles(ctx, roles)
	if err != nil {
		return idp.Wrap("assign roles", err)
	}

	resp, err := c.doAdminRequest(ctx, http.MethodPost,
		c.adminURL("/users/%s/role-mappings/realm", accountID), reps)
	if err != nil {
		return idp.Wrap("assign roles", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return idp.Wrap("assign roles", unexpectedStatus(resp))
	}
	return nil
}

func (c *Client) RemoveRoles(ctx context.Context, accountID string, roles []string) error {
	if len(roles) == 0 {
		return nil
	}

	reps, err := c.resolveRoles(ctx, roles)
	if err != nil {
		return idp.Wrap("remove roles", err)
	}

	resp, err := c.doAdminRequest(ctx, http.MethodDelete,
		c.adminURL("/users/%s/role-mappings/realm", accountID), reps)
	if err != nil {
		return idp.Wrap("remove roles", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return idp.Wrap("remove roles", unexpectedStatus(resp))
	}
	return nil
}

func (c *Client) ListCurrentRoles(ctx context.Context, accountID string) []string {
	resp, err := c.doAdminRequest(ctx, http.MethodGet,
		c.adminURL("/users/%s/role-mappings/realm", accountID), nil)
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to list current roles, treating as none",
			"account_id", accountID, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slogx.FromContext(ctx).Warn("failed to list current roles, treating as none",
			"account_id", accountID, "status", resp.StatusCode)
		return nil
	}

	var reps []roleRepresentation
	if err := json.NewDecoder(resp.Body).Decode(&reps); err != nil {
		slogx.FromContext(ctx).Warn("failed to decode current roles, treating as none",
			"account_id", accountID, "error", err)
		return nil
	}

	names := make([]string, 0, len(reps))
	for _, rep := range reps {
		names = append(names, rep.Name)
	}
	return names
}

// setEnabled fetches the current representation first so the PUT does not
// blank out fields Keycloak treats as omitted.
func (c *Client) setEnabled(ctx context.Context, accountID string, enabled bool) error {
	resp, err := c.doAdminRequest(ctx, http.MethodGet, c.adminURL("/users/%s", accountID), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return unexpectedStatus(resp)
	}

	var rep userRepresentation
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return err
	}
	rep.Enabled = enabled

	return c.putUser(ctx, accountID, rep)
}

func (c *Client) putUser(ctx context.Context, accountID string, rep userRepresentation) error {
	resp, err := c.doAdminRequest(ctx, http.MethodPut, c.adminURL("/users/%s", accountID), rep)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return unexpectedStatus(resp)
	}
	return nil
}

func (c *Client) Enable(ctx context.Context, accountID string) error {
	return idp.Wrap("enable account", c.setEnabled(ctx, accountID, true))
}

func (c *Client) Disable(ctx context.Context, accountID string) error {
	return idp.Wrap("disable account", c.setEnabled(ctx, accountID, false))
}

func (c *Client) UpdateProfile(ctx context.Context, accountID, firstName, lastName, email string, enabled bool) error {
	if !emailPattern.MatchString(email) {
		return idp.ErrEmailInvalid
	}

	return idp.Wrap("update profile", c.putUser(ctx, accountID, userRepresentation{
		Username:  email,
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Enabled:   enabled,
	}))
}

// splitName splits a full name into Keycloak's first/last name pair: the
// first token and everything after it.
func splitName(name string) (first, last string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
