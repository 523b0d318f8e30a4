package pinning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/docverify/internal/logging"
	"github.com/dmitrijs2005/docverify/internal/netx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/gjson"
)

// DefaultPinataEndpoint is the public pin-file endpoint.
const DefaultPinataEndpoint = "https://api.pinata.cloud/pinning/pinFileToIPFS"

var errTokenExpired = errors.New("pinning token expired")

// PinataClient pins files through a Pinata-compatible HTTP API.
type PinataClient struct {
	endpoint string
	token    string
	client   *http.Client
	logger   logging.Logger
	now      func() time.Time
}

func NewPinataClient(endpoint, token string, client *http.Client, logger logging.Logger) *PinataClient {
	if endpoint == "" {
		endpoint = DefaultPinataEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &PinataClient{
		endpoint: endpoint,
		token:    token,
		client:   client,
		logger:   logger.With("module", "pinning", "backend", "pinata"),
		now:      time.Now,
	}
}

type pinataMetadata struct {
	Name      string            `json:"name"`
	KeyValues map[string]string `json:"keyvalues"`
}

func (c *PinataClient) Pin(ctx context.Context, name string, content []byte) (string, error) {
	if err := validate(name, content); err != nil {
		return "", err
	}

	if err := c.checkToken(); err != nil {
		return "", &PinningError{Err: err}
	}

	meta, err := json.Marshal(pinataMetadata{Name: name, KeyValues: map[string]string{"originalName": name}})
	if err != nil {
		return "", &PinningError{Err: err}
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := netx.PostMultipart(ctx, c.client, c.endpoint, header, []netx.Part{
		{Field: "file", FileName: name, Content: content},
		{Field: "pinataMetadata", Content: meta},
	})
	if err != nil {
		c.logger.Error(ctx, "pin request failed", "name", name, "error", err)
		return "", &PinningError{Err: err}
	}

	if !resp.OK() {
		c.logger.Error(ctx, "pin rejected", "name", name, "status", resp.StatusCode)
		return "", &PinningError{Status: resp.StatusCode, Body: string(resp.Body)}
	}

	cid := gjson.GetBytes(resp.Body, "IpfsHash").String()
	if cid == "" {
		return "", &PinningError{Status: resp.StatusCode, Body: string(resp.Body), Err: errEmptyResponse}
	}

	c.logger.Info(ctx, "file pinned", "name", name, "cid", cid, "size", len(content))
	return cid, nil
}

// checkToken fails fast for JWT credentials whose exp claim has passed.
// Opaque tokens are passed through untouched.
func (c *PinataClient) checkToken() error {
	if c.token == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.token, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if !exp.After(c.now()) {
		return fmt.Errorf("%w at %s", errTokenExpired, exp.Format(time.RFC3339))
	}
	return nil
}
