package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yingtu35/site-crawler/internal/webscraper"
)

var sample = []webscraper.Anomaly{
	{Kind: webscraper.KindStatusCode, URL: "https://example.com/", Origin: "start", Status: 404, Detail: "status code 404"},
	{Kind: webscraper.KindConsoleError, URL: "https://example.com/app", Origin: "App", Severity: "error", Detail: "boom app.js 3"},
	{Kind: webscraper.KindExternalCheck, URL: "https://other.com/x", Origin: "https://example.com/ -> Partner", Status: 500, Detail: "status code 500"},
}

func TestCSVExporterWrite(t *testing.T) {
	var buf bytes.Buffer
	e := &CSVExporter{}
	require.NoError(t, e.write(sample, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Kind,URL,Origin,Status,Detail", lines[0])
	assert.Equal(t, "statusCode,https://example.com/,start,404,status code 404", lines[1])
	assert.Equal(t, "consoleError,https://example.com/app,App,,boom app.js 3", lines[2])
}

func TestCSVExporterExportFile(t *testing.T) {
	base := filepath.Join(t.TempDir(), "report")
	require.NoError(t, NewCSVExporter().Export(sample, base))

	data, err := os.ReadFile(base + ".csv")
	require.NoError(t, err)
	assert.Contains(t, string(data), "externalCheck,https://other.com/x")
}

func TestJsonExporterWrite(t *testing.T) {
	var buf bytes.Buffer
	e := &JsonExporter{}
	require.NoError(t, e.write(sample, &buf))

	var report Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, 3, report.Count)
	assert.Equal(t, sample, report.Anomalies)
}

func TestJsonExporterEmpty(t *testing.T) {
	base := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, NewJsonExporter().Export(nil, base))

	data, err := os.ReadFile(base + ".json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"anomalies": []`)
}

func TestExportToMissingDirectory(t *testing.T) {
	base := filepath.Join(t.TempDir(), "missing", "report")
	assert.Error(t, NewCSVExporter().Export(sample, base))
	assert.Error(t, NewJsonExporter().Export(sample, base))
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	PrintResults(&buf, sample)
	out := buf.String()
	assert.Contains(t, out, "Kind")
	assert.Contains(t, out, "https://other.com/x")
	assert.Contains(t, out, "3 problem(s) found")

	buf.Reset()
	PrintResults(&buf, nil)
	assert.Equal(t, "No problems found\n", buf.String())
}
