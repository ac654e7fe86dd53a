package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/anstrom/assessor/internal/discovery"
	"github.com/anstrom/assessor/internal/report"
	"github.com/anstrom/assessor/internal/severity"
)

const maxDescriptionWidth = 60

// printSummary prints the severity distribution of a document.
func printSummary(w io.Writer, doc *report.Document) {
	fmt.Fprintf(w, "\nVulnerability Summary (task %s, report %s)\n", doc.TaskID, doc.ReportID)

	table := tablewriter.NewWriter(w)
	table.Header("Severity", "Count")
	for _, level := range severity.Levels {
		_ = table.Append([]string{string(level), strconv.Itoa(doc.SeverityDistribution.Count(level))})
	}
	_ = table.Append([]string{"total", strconv.Itoa(doc.TotalVulnerabilities)})
	_ = table.Render()
}

// printVulnerabilities prints the findings of a document, highest severity first.
func printVulnerabilities(w io.Writer, doc *report.Document) {
	if len(doc.Vulnerabilities) == 0 {
		fmt.Fprintln(w, "No vulnerabilities found.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Severity", "Score", "Host", "Port", "Name", "CVE")
	for i := range doc.Vulnerabilities {
		v := &doc.Vulnerabilities[i]
		cve := v.CVE
		if cve == "" {
			cve = "-"
		}
		_ = table.Append([]string{
			string(v.SeverityLevel),
			strconv.FormatFloat(v.Severity, 'f', 1, 64),
			v.Host,
			v.Port,
			truncate(v.Name, maxDescriptionWidth),
			cve,
		})
	}
	_ = table.Render()
}

// printDiscovery prints one row per alive host and service.
func printDiscovery(w io.Writer, result *discovery.Result) {
	fmt.Fprintf(w, "Discovery of %s at %s\n", result.Target, timestamp(result.Timestamp))
	fmt.Fprintf(w, "Command: %s\n", result.Command)

	alive := result.AliveHosts()
	if len(alive) == 0 {
		fmt.Fprintln(w, "No hosts up.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Host", "Hostname", "Port", "State", "Service", "Product", "Version")
	for _, addr := range alive {
		host := result.Hosts[addr]
		if len(host.Services) == 0 {
			_ = table.Append([]string{addr, host.Hostname, "-", "-", "-", "-", "-"})
			continue
		}
		for _, svc := range host.Services {
			_ = table.Append([]string{
				addr,
				host.Hostname,
				strconv.Itoa(int(svc.Port)) + "/" + svc.Protocol,
				svc.State,
				svc.Service,
				svc.Product,
				svc.Version,
			})
		}
	}
	_ = table.Render()
	fmt.Fprintf(w, "%d host(s) up, %d service(s)\n", len(alive), result.ServiceCount())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
