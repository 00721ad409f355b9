package storage

import (
	"errors"

	"cp-tickets/models"
)

// ReportWriter is the interface any run report sink must satisfy.
// Sinks are write-only; nothing in the program reads reports back.
type ReportWriter interface {
	Write(report *models.RunReport) error
	Close() error
}

// MultiWriter fans a report out to several sinks. A failing sink does not
// stop the others.
type MultiWriter []ReportWriter

func (m MultiWriter) Write(report *models.RunReport) error {
	var errs []error
	for _, w := range m {
		if err := w.Write(report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiWriter) Close() error {
	var errs []error
	for _, w := range m {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
