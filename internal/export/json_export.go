package export

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/yingtu35/site-crawler/internal/webscraper"
)

// Report is the JSON document written by JsonExporter.
type Report struct {
	Count     int                  `json:"count"`
	Anomalies []webscraper.Anomaly `json:"anomalies"`
}

type JsonExporter struct{}

func NewJsonExporter() Exporter {
	return &JsonExporter{}
}

func (e *JsonExporter) Export(anomalies []webscraper.Anomaly, filename string) error {
	file, err := os.Create(filename + ".json")
	if err != nil {
		slog.Error("creating report file", "file", filename, "error", err)
		return err
	}
	defer file.Close()

	return e.write(anomalies, file)
}

func (e *JsonExporter) write(anomalies []webscraper.Anomaly, w io.Writer) error {
	if anomalies == nil {
		anomalies = []webscraper.Anomaly{}
	}
	resultJson, err := json.MarshalIndent(Report{Count: len(anomalies), Anomalies: anomalies}, "", "    ")
	if err != nil {
		slog.Error("marshalling anomalies", "error", err)
		return err
	}

	if _, err := w.Write(resultJson); err != nil {
		slog.Error("exporting anomalies to JSON", "error", err)
		return err
	}
	return nil
}
