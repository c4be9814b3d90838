package export

import (
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/yingtu35/site-crawler/internal/webscraper"
)

type AnomalyRow struct {
	Kind   string `csv:"Kind"`
	URL    string `csv:"URL"`
	Origin string `csv:"Origin"`
	Status string `csv:"Status,omitempty"`
	Detail string `csv:"Detail"`
}

type CSVExporter struct{}

func NewCSVExporter() Exporter {
	return &CSVExporter{}
}

func (e *CSVExporter) Export(anomalies []webscraper.Anomaly, filename string) error {
	file, err := os.Create(filename + ".csv")
	if err != nil {
		slog.Error("creating report file", "file", filename, "error", err)
		return err
	}
	defer file.Close()

	return e.write(anomalies, file)
}

func (e *CSVExporter) write(anomalies []webscraper.Anomaly, w io.Writer) error {
	rows := e.transformData(anomalies)
	if err := gocsv.Marshal(&rows, w); err != nil {
		slog.Error("exporting anomalies to CSV", "error", err)
		return err
	}
	return nil
}

func (e *CSVExporter) transformData(anomalies []webscraper.Anomaly) []AnomalyRow {
	rows := make([]AnomalyRow, 0, len(anomalies))
	for _, a := range anomalies {
		row := AnomalyRow{
			Kind:   string(a.Kind),
			URL:    a.URL,
			Origin: a.Origin,
			Detail: a.Detail,
		}
		if a.Status != 0 {
			row.Status = strconv.Itoa(a.Status)
		}
		rows = append(rows, row)
	}
	return rows
}
