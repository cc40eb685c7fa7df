// Package gsheets implements a workbook on top of a Google Sheets
// spreadsheet, using the v4 REST API with service account credentials.
package gsheets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/Jeffail/gabs/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"fknsrs.biz/p/ytmetrics/internal/ctxhttpclient"
	"fknsrs.biz/p/ytmetrics/internal/ctxlogger"
	"fknsrs.biz/p/ytmetrics/internal/sheets"
)

const (
	DefaultBaseURL = "https://sheets.googleapis.com/v4"
	Scope          = "https://www.googleapis.com/auth/spreadsheets"
)

type Options struct {
	SpreadsheetID string
	BaseURL       string
	// HTTPClient carries the credentials. When nil the client from the
	// request context is used as is.
	HTTPClient *http.Client
}

type Workbook struct {
	spreadsheetID string
	baseURL       string
	client        *http.Client
}

var _ sheets.Workbook = (*Workbook)(nil)

func New(opts Options) *Workbook {
	w := &Workbook{
		spreadsheetID: opts.SpreadsheetID,
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		client:        opts.HTTPClient,
	}

	if w.baseURL == "" {
		w.baseURL = DefaultBaseURL
	}

	return w
}

// ClientFromCredentialsFile builds an authorised client from a service
// account key file. Token requests go through the context's HTTP client.
func ClientFromCredentialsFile(ctx context.Context, path string) (*http.Client, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gsheets.ClientFromCredentialsFile: %w", err)
	}

	cfg, err := google.JWTConfigFromJSON(d, Scope)
	if err != nil {
		return nil, fmt.Errorf("gsheets.ClientFromCredentialsFile: could not parse credentials: %w", err)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, ctxhttpclient.GetHTTPClient(ctx))

	return cfg.Client(ctx), nil
}

type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gsheets: status %d (%s): %s", e.StatusCode, e.Status, e.Message)
}

func quoteRange(sheet string) string {
	return url.PathEscape("'" + strings.ReplaceAll(sheet, "'", "''") + "'")
}

func (w *Workbook) do(ctx context.Context, method, path string, params url.Values, body *gabs.Container) (*gabs.Container, error) {
	u := w.baseURL + "/spreadsheets/" + url.PathEscape(w.spreadsheetID) + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body.Bytes())
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}

	client := w.client
	if client == nil {
		client = ctxhttpclient.GetHTTPClient(ctx)
	}

	ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
		"sheets.method": method,
		"sheets.path":   path,
	}).Debug("sending sheets request")

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not perform request: %w", err)
	}
	defer res.Body.Close()

	doc, err := gabs.ParseJSONBuffer(res.Body)
	if res.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: res.StatusCode, Message: http.StatusText(res.StatusCode)}
		if err == nil {
			apiErr.Status, _ = doc.Path("error.status").Data().(string)
			if m, ok := doc.Path("error.message").Data().(string); ok {
				apiErr.Message = m
			}
		}
		return nil, apiErr
	}
	if err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}

	return doc, nil
}

func (w *Workbook) sheetExists(ctx context.Context, sheet string) (bool, error) {
	doc, err := w.do(ctx, http.MethodGet, "", url.Values{"fields": {"sheets.properties.title"}}, nil)
	if err != nil {
		return false, err
	}

	for _, s := range doc.Path("sheets").Children() {
		if title, _ := s.Path("properties.title").Data().(string); title == sheet {
			return true, nil
		}
	}

	return false, nil
}

func (w *Workbook) addSheet(ctx context.Context, sheet string) error {
	body := gabs.New()
	req := gabs.New()
	if _, err := req.Set(sheet, "addSheet", "properties", "title"); err != nil {
		return err
	}
	if err := body.ArrayAppend(req.Data(), "requests"); err != nil {
		return err
	}

	_, err := w.do(ctx, http.MethodPost, ":batchUpdate", nil, body)
	return err
}

func valuesBody(rows [][]string) *gabs.Container {
	values := make([]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, c := range row {
			cells[j] = c
		}
		values[i] = cells
	}

	body := gabs.New()
	body.Set(values, "values")

	return body
}

func (w *Workbook) ReadRows(ctx context.Context, sheet string) ([][]string, error) {
	exists, err := w.sheetExists(ctx, sheet)
	if err != nil {
		return nil, fmt.Errorf("gsheets.Workbook.ReadRows: %q: %w", sheet, err)
	}
	if !exists {
		return nil, fmt.Errorf("gsheets.Workbook.ReadRows: %q: %w", sheet, sheets.ErrSheetNotFound)
	}

	doc, err := w.do(ctx, http.MethodGet, "/values/"+quoteRange(sheet), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("gsheets.Workbook.ReadRows: %q: %w", sheet, err)
	}

	rows := [][]string{}
	for _, r := range doc.Path("values").Children() {
		row := []string{}
		for _, c := range r.Children() {
			switch v := c.Data().(type) {
			case string:
				row = append(row, v)
			case nil:
				row = append(row, "")
			default:
				row = append(row, fmt.Sprint(v))
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func (w *Workbook) CreateSheet(ctx context.Context, sheet string, header []string) error {
	exists, err := w.sheetExists(ctx, sheet)
	if err != nil {
		return fmt.Errorf("gsheets.Workbook.CreateSheet: %q: %w", sheet, err)
	}
	if exists {
		return nil
	}

	if err := w.addSheet(ctx, sheet); err != nil {
		return fmt.Errorf("gsheets.Workbook.CreateSheet: %q: could not add sheet: %w", sheet, err)
	}

	if _, err := w.do(ctx, http.MethodPut, "/values/"+quoteRange(sheet), url.Values{"valueInputOption": {"RAW"}}, valuesBody([][]string{header})); err != nil {
		return fmt.Errorf("gsheets.Workbook.CreateSheet: %q: could not write header: %w", sheet, err)
	}

	return nil
}

func (w *Workbook) AppendRows(ctx context.Context, sheet string, rows [][]string) error {
	exists, err := w.sheetExists(ctx, sheet)
	if err != nil {
		return fmt.Errorf("gsheets.Workbook.AppendRows: %q: %w", sheet, err)
	}
	if !exists {
		return fmt.Errorf("gsheets.Workbook.AppendRows: %q: %w", sheet, sheets.ErrSheetNotFound)
	}

	if len(rows) == 0 {
		return nil
	}

	if _, err := w.do(ctx, http.MethodPost, "/values/"+quoteRange(sheet)+":append", url.Values{
		"valueInputOption": {"RAW"},
		"insertDataOption": {"INSERT_ROWS"},
	}, valuesBody(rows)); err != nil {
		return fmt.Errorf("gsheets.Workbook.AppendRows: %q: %w", sheet, err)
	}

	return nil
}

func (w *Workbook) ReplaceRows(ctx context.Context, sheet string, rows [][]string) error {
	exists, err := w.sheetExists(ctx, sheet)
	if err != nil {
		return fmt.Errorf("gsheets.Workbook.ReplaceRows: %q: %w", sheet, err)
	}

	if !exists {
		if err := w.addSheet(ctx, sheet); err != nil {
			return fmt.Errorf("gsheets.Workbook.ReplaceRows: %q: could not add sheet: %w", sheet, err)
		}
	} else {
		if _, err := w.do(ctx, http.MethodPost, "/values/"+quoteRange(sheet)+":clear", nil, gabs.New()); err != nil {
			return fmt.Errorf("gsheets.Workbook.ReplaceRows: %q: could not clear sheet: %w", sheet, err)
		}
	}

	if len(rows) == 0 {
		return nil
	}

	if _, err := w.do(ctx, http.MethodPut, "/values/"+quoteRange(sheet), url.Values{"valueInputOption": {"RAW"}}, valuesBody(rows)); err != nil {
		return fmt.Errorf("gsheets.Workbook.ReplaceRows: %q: %w", sheet, err)
	}

	return nil
}
