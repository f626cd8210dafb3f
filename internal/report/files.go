package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mileagecal/internal/model"
)

// Paths are the files written for one report.
type Paths struct {
	JSON     string
	Meetings string
	Mileage  string
}

// BaseName is "driving-deduction-<start>-<end>-<N>mi", with the dates taken
// in the zone the range was built in.
func BaseName(s model.Summary) string {
	return fmt.Sprintf("driving-deduction-%s-%s-%smi",
		s.DateRange.Start().Format(time.DateOnly),
		s.DateRange.End().Format(time.DateOnly),
		FormatThreshold(s.MaxOneWayMiles),
	)
}

// EnsureDir creates dir (and parents) if it does not exist yet.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report: create output dir %s: %w", dir, err)
	}
	return nil
}

// Write stores the artifacts under dir using base as the file stem.
func Write(dir, base string, a Artifacts) (Paths, error) {
	if err := EnsureDir(dir); err != nil {
		return Paths{}, err
	}

	p := Paths{
		JSON:     filepath.Join(dir, base+".json"),
		Meetings: filepath.Join(dir, base+"-meetings.csv"),
		Mileage:  filepath.Join(dir, base+"-mileage.csv"),
	}
	files := []struct {
		path string
		data []byte
	}{
		{p.JSON, a.JSON},
		{p.Meetings, a.MeetingsCSV},
		{p.Mileage, a.MileageCSV},
	}
	for _, f := range files {
		if err := os.WriteFile(f.path, f.data, 0o644); err != nil {
			return Paths{}, fmt.Errorf("report: write %s: %w", f.path, err)
		}
	}
	return p, nil
}
