package export

import "github.com/yingtu35/site-crawler/internal/webscraper"

type Exporter interface {
	// Export writes the anomalies to filename plus the exporter's extension
	Export(anomalies []webscraper.Anomaly, filename string) error
}
