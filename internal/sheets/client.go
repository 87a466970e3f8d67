// Package sheets fetches rectangular ranges of cell values from the Google
// Sheets values endpoint. It is a thin read-only client; retry and backoff
// live in the HTTP layer, callers only see a Grid or an error.
package sheets

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"shiftbot/internal/config"
	logx "shiftbot/pkg/logx"
)

const defaultBaseURL = "https://sheets.googleapis.com/v4"

// Client fetches cell ranges for one API key.
type Client struct {
	http *resty.Client
	log  logx.Logger
}

type valueRange struct {
	Range          string  `json:"range"`
	MajorDimension string  `json:"majorDimension"`
	Values         [][]any `json:"values"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func NewClient(cfg config.SheetsConfig, log logx.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout, err := config.ParseDurationOrDefault("sheets.timeout", cfg.Timeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	http := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json").
		SetQueryParam("key", strings.TrimSpace(cfg.APIKey))

	return &Client{http: http, log: log}, nil
}

// FetchRange returns the cells of rangeExpr in spreadsheetID.
//
// A published-but-empty range and a missing sheet tab both come back as an
// empty Grid, not an error: an absent month tab means "no schedule
// published", which the pipeline handles as a business case.
func (c *Client) FetchRange(ctx context.Context, spreadsheetID, rangeExpr string) (Grid, error) {
	var (
		out    valueRange
		apiErr apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr).
		Get(fmt.Sprintf("/spreadsheets/%s/values/%s",
			url.PathEscape(spreadsheetID), url.PathEscape(rangeExpr)))
	if err != nil {
		return nil, fmt.Errorf("sheets: fetch %q: %w", rangeExpr, err)
	}

	if resp.IsError() {
		// The API answers 400 INVALID_ARGUMENT when the sheet tab doesn't
		// exist. Treat that as "no schedule published for this month".
		if resp.StatusCode() == 400 && strings.Contains(apiErr.Error.Message, "Unable to parse range") {
			c.log.Debug("sheet tab missing",
				logx.String("range", rangeExpr),
				logx.String("spreadsheet", spreadsheetID))
			return nil, nil
		}
		return nil, fmt.Errorf("sheets: fetch %q: %s (http %d)",
			rangeExpr, apiErr.Error.Message, resp.StatusCode())
	}

	c.log.Trace("range fetched",
		logx.String("range", out.Range),
		logx.Int("rows", len(out.Values)))
	return Grid(out.Values), nil
}
