// Package export writes formatted videos out as a spreadsheet-friendly CSV
// file and optionally uploads it to S3.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fknsrs.biz/p/ytmetrics/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes a byte order mark, a header row and one row per video.
// The mark makes spreadsheet programs read the file as UTF-8.
func WriteCSV(w io.Writer, videos []models.FormattedVideo) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("export.WriteCSV: %w", err)
	}

	c := csv.NewWriter(w)

	if err := c.Write(models.CurrentColumns); err != nil {
		return fmt.Errorf("export.WriteCSV: %w", err)
	}

	for _, v := range videos {
		if err := c.Write(v.Row()); err != nil {
			return fmt.Errorf("export.WriteCSV: %s: %w", v.VideoID, err)
		}
	}

	c.Flush()
	if err := c.Error(); err != nil {
		return fmt.Errorf("export.WriteCSV: %w", err)
	}

	return nil
}

// WriteFile writes the CSV to path, creating parent directories as needed.
// The file is written next to path first and renamed into place.
func WriteFile(path string, videos []models.FormattedVideo) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export.WriteFile: %w", err)
	}

	fd, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("export.WriteFile: %w", err)
	}
	defer os.Remove(fd.Name())
	defer fd.Close()

	if err := WriteCSV(fd, videos); err != nil {
		return fmt.Errorf("export.WriteFile: %w", err)
	}
	if err := fd.Close(); err != nil {
		return fmt.Errorf("export.WriteFile: %w", err)
	}

	if err := os.Rename(fd.Name(), path); err != nil {
		return fmt.Errorf("export.WriteFile: %w", err)
	}

	return nil
}
