package warnfeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/lgadye/warn-monitor/config"
)

func TestExtractXLSXURL(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "prefers warn link",
			html: `<a href="/docs/budget.xlsx">Budget</a><a href="/docs/warn_report.xlsx">WARN</a>`,
			want: "https://edd.example.gov/docs/warn_report.xlsx",
		},
		{
			name: "first warn link wins",
			html: `<a href="WARN-2025.xlsx">a</a><a href="warn-2024.xlsx">b</a>`,
			want: "https://edd.example.gov/layoffs/WARN-2025.xlsx",
		},
		{
			name: "falls back to any spreadsheet",
			html: `<a href="/report.pdf">pdf</a><a href="https://cdn.example.com/listing.XLSX">x</a>`,
			want: "https://cdn.example.com/listing.XLSX",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractXLSXURL(tt.html, "https://edd.example.gov/layoffs/index.html")
			if err != nil {
				t.Fatalf("ExtractXLSXURL: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractXLSXURLWithoutLink(t *testing.T) {
	_, err := ExtractXLSXURL(`<a href="/report.pdf">pdf</a>`, "https://edd.example.gov/")
	if !errors.Is(err, ErrNoXLSXLink) {
		t.Fatalf("expected ErrNoXLSXLink, got %v", err)
	}
}

func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cellRef, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"California WARN Report"},
		{},
		{"County", "Notice Date", "Effective Date", "Company", "No. Of Employees"},
		{"San Francisco", 45672, 45730, "Anthropic PBC", 40},
		{},
		{"Alameda", "2025-01-17", "2025-03-01", "Acme Corp", 12},
	})

	records, err := ParseXLSX(data)
	if err != nil {
		t.Fatalf("ParseXLSX: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.OrganizationName != "Anthropic PBC" {
		t.Fatalf("unexpected organization %q", first.OrganizationName)
	}
	if first.NoticeDate != "2025-01-15" {
		t.Fatalf("expected decoded notice date, got %q", first.NoticeDate)
	}
	if first.RawRow["Notice Date"] != "2025-01-15" || first.RawRow["Effective Date"] != "2025-03-14" {
		t.Fatalf("serial dates should be decoded in raw row, got %v", first.RawRow)
	}
	if first.RawRow["County"] != "San Francisco" || first.RawRow["No. Of Employees"] != "40" {
		t.Fatalf("unexpected raw row %v", first.RawRow)
	}
	fields := first.Fields()
	if fields[0][0] != "County" || fields[3][0] != "Company" {
		t.Fatalf("fields should follow header order, got %v", fields)
	}

	if records[1].OrganizationName != "Acme Corp" || records[1].NoticeDate != "2025-01-17" {
		t.Fatalf("unexpected second record %+v", records[1])
	}
}

func TestParseXLSXFallsBackToFirstColumn(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"Org", "Received"},
		{"Anthropic", "2025-02-01"},
	})

	records, err := ParseXLSX(data)
	if err != nil {
		t.Fatalf("ParseXLSX: %v", err)
	}
	if len(records) != 1 || records[0].OrganizationName != "Anthropic" || records[0].NoticeDate != "2025-02-01" {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestParseXLSXRejectsGarbage(t *testing.T) {
	if _, err := ParseXLSX([]byte("not a workbook")); err == nil {
		t.Fatal("expected error for non-XLSX bytes")
	}
}

func TestClientFetchDocument(t *testing.T) {
	report := buildWorkbook(t, [][]any{
		{"Company", "Notice Date"},
		{"Anthropic", "2025-01-10"},
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/warn/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><a href="files/warn_report.xlsx">Download</a></body></html>`))
	})
	mux.HandleFunc("/warn/files/warn_report.xlsx", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(report)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL+"/warn/", time.Second, time.Second)
	doc, err := client.FetchDocument(context.Background())
	if err != nil {
		t.Fatalf("FetchDocument: %v", err)
	}
	if !strings.HasSuffix(doc.URL, "/warn/files/warn_report.xlsx") {
		t.Fatalf("unexpected document URL %q", doc.URL)
	}

	records, err := client.Parse(doc.Data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 1 || records[0].OrganizationName != "Anthropic" {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestNewClientDefaultsTimeouts(t *testing.T) {
	c := NewClient("https://edd.example.gov/", 0, 0)
	if c.page.Timeout != config.DefaultHTTPTimeout || c.download.Timeout != config.DefaultDownloadTimeout {
		t.Fatalf("unexpected timeouts page=%v download=%v", c.page.Timeout, c.download.Timeout)
	}
}

func TestDownloadRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := Download(context.Background(), srv.Client(), srv.URL+"/x.xlsx"); err == nil {
		t.Fatal("expected error for HTTP 404")
	}
}
