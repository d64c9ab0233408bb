package huskoll

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Production endpoints, from the vendor API documentation.
const (
	defaultBaseURL    = "https://huskoll.se/API/openAPI.php/huskoll/"
	getParametersPath = "get/"
	setParametersPath = "set/"
)

// Live is the HTTP implementation of the API interface.  Both
// endpoints take a form-encoded POST and answer with a small JSON
// envelope; HTTP status codes are not load bearing (errors come back
// as a JSON `error` field), so decoding is attempted regardless.
type Live struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

func NewLiveClient() *Live {
	return &Live{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
}

func (c *Live) WithBaseURL(u string) API {
	nc := *c
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	nc.baseURL = u
	return &nc
}

func (c *Live) WithTimeout(d time.Duration) API {
	nc := *c
	nc.timeout = d
	return &nc
}

func (c *Live) makeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}

	return ctx, func() {}
}

func (c *Live) FetchStatus(ctx context.Context, creds Credentials) (*Status, error) {
	body, err := c.postForm(ctx, getParametersPath, creds.Values())
	if err != nil {
		return nil, err
	}

	return decodeStatusResponse(ctx, body)
}

func (c *Live) SubmitParameters(ctx context.Context, creds Credentials, params Parameters) error {
	data := creds.Values()
	data["power"] = string(params.Power)
	data["mode"] = string(params.Mode)
	data["fan"] = string(params.FanSpeed)
	data["setpoint"] = formatSetpoint(params.Setpoint)

	body, err := c.postForm(ctx, setParametersPath, data)
	if err != nil {
		return err
	}

	return decodeAckResponse(ctx, body)
}

func (c *Live) postForm(ctx context.Context, path string, data map[string]string) ([]byte, error) {
	ctx, cancel := c.makeContext(ctx)
	defer cancel()

	form := url.Values{}
	for k, v := range data {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "posting to %s", c.baseURL+path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "reading response from %s", c.baseURL+path)
	}

	return body, nil
}

func formatSetpoint(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
