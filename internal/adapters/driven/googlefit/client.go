// Package googlefit implements the FitnessProvider port against the Google
// Fit REST API: the OAuth consent and token endpoints plus the
// dataset:aggregate query used for daily step and calorie totals.
package googlefit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/feldspar-labs/vitalsync/internal/core/domain"
	"github.com/feldspar-labs/vitalsync/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.FitnessProvider = (*Client)(nil)

const (
	defaultAuthURL      = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL     = "https://oauth2.googleapis.com/token"
	defaultAggregateURL = "https://www.googleapis.com/fitness/v1/users/me/dataset:aggregate"

	stepsDataType      = "com.google.step_count.delta"
	stepsDataSource    = "derived:com.google.step_count.delta:com.google.android.gms:estimated_steps"
	caloriesDataType   = "com.google.calories.expended"
	caloriesDataSource = "derived:com.google.calories.expended:com.google.android.gms:merge_calories_expended"
)

// scopes are the minimal read grants for daily activity aggregates.
var scopes = []string{
	"https://www.googleapis.com/auth/fitness.activity.read",
	"https://www.googleapis.com/auth/fitness.body.read",
}

// ClientConfig holds Google Fit client configuration.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// AuthURL, TokenURL and AggregateURL override the Google endpoints.
	// Empty means the real ones; tests point them at a local server.
	AuthURL      string
	TokenURL     string
	AggregateURL string

	// Timeout bounds each outbound request. Defaults to 15 seconds.
	Timeout time.Duration
}

// Client talks to the Google Fit API.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
}

// NewClient creates a new Google Fit client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.AggregateURL == "" {
		cfg.AggregateURL = defaultAggregateURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// ConsentURL constructs the Google OAuth consent URL. access_type=offline
// plus prompt=consent forces Google to issue a refresh token on every
// exchange, not just the first one for this client.
func (c *Client) ConsentURL(state string) string {
	params := url.Values{
		"client_id":     {c.cfg.ClientID},
		"redirect_uri":  {c.cfg.RedirectURI},
		"response_type": {"code"},
		"scope":         {strings.Join(scopes, " ")},
		"access_type":   {"offline"},
		"prompt":        {"consent"},
		"state":         {state},
	}
	return c.cfg.AuthURL + "?" + params.Encode()
}

// ExchangeCode exchanges a one-time authorization code for a token pair.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*driven.TokenPair, error) {
	params := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {c.cfg.RedirectURI},
	}

	pair, err := c.postToken(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExchangeFailed, err)
	}
	return pair, nil
}

// Refresh exchanges a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*driven.TokenPair, error) {
	params := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	pair, err := c.postToken(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRefreshFailed, err)
	}
	return pair, nil
}

// postToken sends a form-encoded request to the token endpoint.
func (c *Client) postToken(ctx context.Context, params url.Values) (*driven.TokenPair, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.TokenURL,
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		Error        string `json:"error"`
		ErrorDesc    string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if tokenResp.Error != "" {
		return nil, fmt.Errorf("oauth error: %s - %s", tokenResp.Error, tokenResp.ErrorDesc)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned no access token")
	}

	return &driven.TokenPair{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresIn:    tokenResp.ExpiresIn,
	}, nil
}

// aggregateRequest is the dataset:aggregate request body.
type aggregateRequest struct {
	AggregateBy     []aggregateBy `json:"aggregateBy"`
	BucketByTime    bucketByTime  `json:"bucketByTime"`
	StartTimeMillis int64         `json:"startTimeMillis"`
	EndTimeMillis   int64         `json:"endTimeMillis"`
}

type aggregateBy struct {
	DataTypeName string `json:"dataTypeName"`
	DataSourceID string `json:"dataSourceId"`
}

type bucketByTime struct {
	DurationMillis int64 `json:"durationMillis"`
}

// aggregateResponse is the slice of the dataset:aggregate answer we read.
type aggregateResponse struct {
	Bucket []struct {
		Dataset []struct {
			Point []struct {
				Value []struct {
					IntVal *int64   `json:"intVal"`
					FpVal  *float64 `json:"fpVal"`
				} `json:"value"`
			} `json:"point"`
		} `json:"dataset"`
	} `json:"bucket"`
}

// FetchDailyActivity queries step and calorie aggregates for one calendar
// day. The two metrics are independent queries and run concurrently; both
// must succeed for the day to count as fetched.
func (c *Client) FetchDailyActivity(ctx context.Context, accessToken string, day time.Time) (*domain.DailyActivity, error) {
	start := domain.DayOf(day)
	end := start.AddDate(0, 0, 1)

	var (
		wg       sync.WaitGroup
		activity domain.DailyActivity
		stepsErr error
		calsErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		value, recorded, err := c.aggregate(ctx, accessToken, stepsDataType, stepsDataSource, start, end)
		if err != nil {
			stepsErr = err
			return
		}
		activity.Steps = int(value)
		activity.StepsRecorded = recorded
	}()
	go func() {
		defer wg.Done()
		value, recorded, err := c.aggregate(ctx, accessToken, caloriesDataType, caloriesDataSource, start, end)
		if err != nil {
			calsErr = err
			return
		}
		// Calorie aggregates come back as floats; the stored grain is
		// whole kcal.
		activity.Calories = int(value + 0.5)
		activity.CaloriesRecorded = recorded
	}()
	wg.Wait()

	if stepsErr != nil {
		return nil, fmt.Errorf("steps: %w", stepsErr)
	}
	if calsErr != nil {
		return nil, fmt.Errorf("calories: %w", calsErr)
	}
	return &activity, nil
}

// aggregate runs one dataset:aggregate query and extracts the first value of
// the first point. recorded is false when the bucket holds no points at all,
// which is how the API reports a day with nothing tracked.
func (c *Client) aggregate(ctx context.Context, accessToken, dataType, dataSource string, start, end time.Time) (float64, bool, error) {
	reqBody := aggregateRequest{
		AggregateBy: []aggregateBy{{
			DataTypeName: dataType,
			DataSourceID: dataSource,
		}},
		BucketByTime:    bucketByTime{DurationMillis: end.Sub(start).Milliseconds()},
		StartTimeMillis: start.UnixMilli(),
		EndTimeMillis:   end.UnixMilli(),
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return 0, false, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.AggregateURL, bytes.NewReader(payload))
	if err != nil {
		return 0, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return 0, false, fmt.Errorf("%w: aggregate returned %d", domain.ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, false, fmt.Errorf("%w: aggregate returned %d: %s", domain.ErrFetchFailed, resp.StatusCode, string(body))
	}

	var aggResp aggregateResponse
	if err := json.NewDecoder(resp.Body).Decode(&aggResp); err != nil {
		return 0, false, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	for _, bucket := range aggResp.Bucket {
		for _, dataset := range bucket.Dataset {
			for _, point := range dataset.Point {
				for _, value := range point.Value {
					if value.IntVal != nil {
						return float64(*value.IntVal), true, nil
					}
					if value.FpVal != nil {
						return *value.FpVal, true, nil
					}
				}
			}
		}
	}
	return 0, false, nil
}
