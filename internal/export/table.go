package export

import (
	"fmt"
	"io"

	"github.com/rodaine/table"
	"github.com/yingtu35/site-crawler/internal/webscraper"
)

// PrintResults writes a human readable table of anomalies to w.
func PrintResults(w io.Writer, anomalies []webscraper.Anomaly) {
	if len(anomalies) == 0 {
		fmt.Fprintln(w, "No problems found")
		return
	}

	tbl := table.New("Kind", "URL", "Origin", "Status", "Detail").WithWriter(w)
	for _, a := range anomalies {
		status := ""
		if a.Status != 0 {
			status = fmt.Sprint(a.Status)
		}
		tbl.AddRow(a.Kind, a.URL, a.Origin, status, a.Detail)
	}
	tbl.Print()
	fmt.Fprintf(w, "\n%d problem(s) found\n", len(anomalies))
}
