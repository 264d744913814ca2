package renderer

import (
	"fmt"
	"io"

	"github.com/xlab/tablewriter"
)

// InfoTable renders the adapter description, the surface configuration and the adapter and
// requested limits as a UTF-8 box table.
//
// Parameters:
//   - c: the acquired context
//   - s: the configured surface, or nil
//
// Returns:
//   - string: the rendered table
func InfoTable(c *Context, s *SurfaceBinding) string {
	table := tablewriter.CreateTable()
	table.UTF8Box()
	table.AddTitle("WEBGPU ADAPTER AND DEVICE")
	table.AddRow("Adapter", c.Info.Name)
	table.AddRow("Backend", c.Info.Backend)
	table.AddRow("Adapter type", c.Info.AdapterType)
	table.AddRow("Driver", c.Info.Driver)

	if s != nil {
		table.AddSeparator()
		table.AddRow("Surface size", fmt.Sprintf("%dx%d", s.Width, s.Height))
		table.AddRow("Surface format", fmt.Sprint(s.Format))
		table.AddRow("Present mode", fmt.Sprint(s.PresentMode))
	}

	table.AddSeparator()
	table.AddRow("LIMIT", "ADAPTER / REQUESTED")
	for _, row := range limitRows(c.AdapterLimits, c.RequiredLimits) {
		table.AddRow(row[0], row[1])
	}
	return table.Render()
}

// PrintInfo writes InfoTable to w.
func PrintInfo(w io.Writer, c *Context, s *SurfaceBinding) error {
	_, err := fmt.Fprintln(w, InfoTable(c, s))
	return err
}
