package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"bizdash/internal/log"
	ports "bizdash/internal/sheets"
)

// Client writes exports into one spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger
}

// Ensure interface conformance
var _ ports.RowWriter = (*Client)(nil)

// Config selects the spreadsheet and credentials. One of ServiceAccountJSON,
// ServiceAccountFile or OAuthTokenJSON is required unless Options already
// carry authentication.
type Config struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
	// OAuthTokenJSON is a pre-issued oauth2 token ({"access_token": ...}).
	OAuthTokenJSON string
	// Options are appended last, e.g. an endpoint override in tests.
	Options []goption.ClientOption
}

func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	opts, err := credentialOptions(cfg)
	if err != nil {
		return nil, err
	}
	if len(cfg.Options) == 0 {
		opts = append(opts, goption.WithHTTPClient(newHTTPClientWithPooling()))
	}
	opts = append(opts, cfg.Options...)

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, logger: logger}, nil
}

func credentialOptions(cfg Config) ([]goption.ClientOption, error) {
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		return []goption.ClientOption{
			goption.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, nil
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		data, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return []goption.ClientOption{
			goption.WithCredentialsJSON(data),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, nil
	case strings.TrimSpace(cfg.OAuthTokenJSON) != "":
		var tok oauth2.Token
		if err := json.Unmarshal([]byte(cfg.OAuthTokenJSON), &tok); err != nil {
			return nil, fmt.Errorf("parse oauth token: %w", err)
		}
		if tok.AccessToken == "" {
			return nil, errors.New("parse oauth token: missing access_token")
		}
		return []goption.ClientOption{goption.WithTokenSource(oauth2.StaticTokenSource(&tok))}, nil
	case len(cfg.Options) > 0:
		return nil, nil
	default:
		return nil, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_OAUTH_TOKEN_JSON)")
	}
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// WriteRows clears sheet and writes header plus rows from A1.
func (c *Client) WriteRows(ctx context.Context, sheet string, header []string, rows [][]string) (string, error) {
	if strings.TrimSpace(sheet) == "" {
		return "", errors.New("sheet name is required")
	}

	quoted := quoteSheet(sheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, quoted, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear sheet %s: %w", sheet, err)
	}

	values := make([][]interface{}, 0, len(rows)+1)
	values = append(values, toInterfaces(header))
	for _, r := range rows {
		values = append(values, toInterfaces(r))
	}

	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, quoted+"!A1", &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write sheet %s: %w", sheet, err)
	}

	c.logger.InfoContext(ctx, "Rows exported",
		log.FieldOperation, log.OpExport,
		log.FieldCount, len(rows),
		"range", resp.UpdatedRange)

	return resp.UpdatedRange, nil
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
