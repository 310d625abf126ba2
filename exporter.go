package goslam

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Exporter defines an export interface for estimates.
type Exporter interface {
	Write(Estimate) error
	Close() error
}

// CSVExporter writes pose estimates with their ±2σ envelope to a CSV file.
// Only the pose block is exported: it is the part of the joint state whose
// size does not grow with the map, so the column layout stays stable across
// a whole run. The landmark count is appended as a last column.
type CSVExporter struct {
	delimiter string
	hdlr      *os.File
}

// NewCSVExporter initializes a new CSV export for the pose headers.
func NewCSVExporter(headers [poseDim]string, dir, filename string) (e *CSVExporter, err error) {
	f, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return
	}
	delimiter := ","
	hdr := make([]string, poseDim*3+1)
	for i := 0; i < poseDim*3; i += 3 {
		hdr[i] = headers[i/3]
		hdr[i+1] = hdr[i] + "+2s"
		hdr[i+2] = hdr[i] + "-2s"
	}
	hdr[poseDim*3] = "landmarks"
	f.WriteString(fmt.Sprintf("# Creation date (UTC): %s\n%s\n", time.Now().UTC(), strings.Join(hdr, delimiter)))
	e = &CSVExporter{delimiter, f}
	return
}

// Write writes the estimate's pose block to the CSV file.
func (e CSVExporter) Write(est Estimate) error {
	vals := make([]string, poseDim*3+1)
	for i := 0; i < poseDim*3; i += 3 {
		vals[i] = fmt.Sprintf("%f", est.State().AtVec(i/3))
		bound := 2 * math.Sqrt(est.Covariance().At(i/3, i/3))
		vals[i+1] = fmt.Sprintf("%f", bound)
		vals[i+2] = fmt.Sprintf("%f", -1*bound)
	}
	vals[poseDim*3] = fmt.Sprintf("%d", est.NumLandmarks())
	_, err := e.hdlr.WriteString(strings.Join(vals, e.delimiter) + "\n")
	return err
}

// WriteRawLn writes a raw line to the CSV file.
func (e CSVExporter) WriteRawLn(s string) error {
	_, err := e.hdlr.WriteString(s + "\n")
	return err
}

// Close closes the file.
func (e CSVExporter) Close() (err error) {
	err = e.WriteRawLn(fmt.Sprintf("# Closing date (UTC): %s\n", time.Now().UTC()))
	if err != nil {
		return
	}
	return e.hdlr.Close()
}
