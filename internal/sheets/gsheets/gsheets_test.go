package gsheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"fknsrs.biz/p/ytmetrics/internal/sheets"
	"fknsrs.biz/p/ytmetrics/internal/sheets/sheetstest"
)

type fakeSpreadsheet struct {
	m      sync.Mutex
	order  []string
	sheets map[string][][]interface{}
}

func newFakeSpreadsheet() *fakeSpreadsheet {
	return &fakeSpreadsheet{sheets: make(map[string][][]interface{})}
}

func writeJSON(rw http.ResponseWriter, status int, v interface{}) {
	rw.Header().Set("content-type", "application/json")
	rw.WriteHeader(status)
	json.NewEncoder(rw).Encode(v)
}

func (f *fakeSpreadsheet) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	f.m.Lock()
	defer f.m.Unlock()

	rest, ok := strings.CutPrefix(r.URL.Path, "/v4/spreadsheets/sheet-id")
	if !ok {
		writeJSON(rw, http.StatusNotFound, map[string]interface{}{"error": map[string]interface{}{"status": "NOT_FOUND", "message": "no such spreadsheet"}})
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodGet:
		var list []interface{}
		for _, name := range f.order {
			list = append(list, map[string]interface{}{"properties": map[string]interface{}{"title": name}})
		}
		writeJSON(rw, http.StatusOK, map[string]interface{}{"sheets": list})
	case rest == ":batchUpdate" && r.Method == http.MethodPost:
		var body struct {
			Requests []struct {
				AddSheet struct {
					Properties struct {
						Title string `json:"title"`
					} `json:"properties"`
				} `json:"addSheet"`
			} `json:"requests"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		for _, req := range body.Requests {
			title := req.AddSheet.Properties.Title
			if _, ok := f.sheets[title]; ok {
				writeJSON(rw, http.StatusBadRequest, map[string]interface{}{"error": map[string]interface{}{"status": "INVALID_ARGUMENT", "message": "sheet exists"}})
				return
			}
			f.order = append(f.order, title)
			f.sheets[title] = nil
		}
		writeJSON(rw, http.StatusOK, map[string]interface{}{})
	case strings.HasPrefix(rest, "/values/"):
		target := strings.TrimPrefix(rest, "/values/")
		action := ""
		if i := strings.LastIndex(target, ":"); i != -1 {
			target, action = target[:i], target[i+1:]
		}
		name := strings.ReplaceAll(strings.Trim(target, "'"), "''", "'")

		rows, ok := f.sheets[name]
		if !ok {
			writeJSON(rw, http.StatusBadRequest, map[string]interface{}{"error": map[string]interface{}{"status": "INVALID_ARGUMENT", "message": "Unable to parse range: " + target}})
			return
		}

		var body struct {
			Values [][]interface{} `json:"values"`
		}
		if r.Method != http.MethodGet {
			json.NewDecoder(r.Body).Decode(&body)
		}

		switch {
		case r.Method == http.MethodGet && action == "":
			out := map[string]interface{}{"range": target}
			if len(rows) > 0 {
				out["values"] = rows
			}
			writeJSON(rw, http.StatusOK, out)
		case r.Method == http.MethodPut && action == "":
			for i, row := range body.Values {
				if i < len(rows) {
					rows[i] = row
				} else {
					rows = append(rows, row)
				}
			}
			f.sheets[name] = rows
			writeJSON(rw, http.StatusOK, map[string]interface{}{})
		case r.Method == http.MethodPost && action == "append":
			f.sheets[name] = append(rows, body.Values...)
			writeJSON(rw, http.StatusOK, map[string]interface{}{})
		case r.Method == http.MethodPost && action == "clear":
			f.sheets[name] = nil
			writeJSON(rw, http.StatusOK, map[string]interface{}{})
		default:
			writeJSON(rw, http.StatusMethodNotAllowed, map[string]interface{}{})
		}
	default:
		writeJSON(rw, http.StatusNotFound, map[string]interface{}{})
	}
}

func newTestWorkbook(t *testing.T, f *fakeSpreadsheet) *Workbook {
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	return New(Options{SpreadsheetID: "sheet-id", BaseURL: srv.URL + "/v4/", HTTPClient: srv.Client()})
}

func TestContract(t *testing.T) {
	sheetstest.Run(t, func(t *testing.T) sheets.Workbook {
		return newTestWorkbook(t, newFakeSpreadsheet())
	})
}

func TestReadRowsFormatsNonStrings(t *testing.T) {
	a := assert.New(t)

	f := newFakeSpreadsheet()
	f.order = []string{"video_history"}
	f.sheets["video_history"] = [][]interface{}{{"video_id", "view_count"}, {"v1", 1500}, {"v2", nil}}

	rows, err := newTestWorkbook(t, f).ReadRows(context.Background(), "video_history")
	a.NoError(err)
	a.Equal([][]string{{"video_id", "view_count"}, {"v1", "1500"}, {"v2", ""}}, rows)
}

func TestAPIError(t *testing.T) {
	a := assert.New(t)

	w := newTestWorkbook(t, newFakeSpreadsheet())
	w.spreadsheetID = "other"

	_, err := w.ReadRows(context.Background(), "video_history")

	var apiErr *APIError
	if a.ErrorAs(err, &apiErr) {
		a.Equal(http.StatusNotFound, apiErr.StatusCode)
		a.Equal("NOT_FOUND", apiErr.Status)
		a.Equal("no such spreadsheet", apiErr.Message)
	}
}

func TestQuoteRange(t *testing.T) {
	a := assert.New(t)

	a.Equal("%27video_history%27", quoteRange("video_history"))
	a.Equal("%27it%27%27s%27", quoteRange("it's"))
	a.Equal("%27a%20b%27", quoteRange("a b"))
}
