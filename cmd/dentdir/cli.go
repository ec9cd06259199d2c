package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/dentdir"
	"github.com/fwojciec/dentdir/config"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx         context.Context
	Stdin       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
	Now         func() time.Time
	Config      *config.Config
	Logger      *slog.Logger
	Clinics     dentdir.ClinicService
	Credentials dentdir.CredentialService
	Ingester    dentdir.Ingester
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config  string `help:"Config file path" env:"DENTDIR_CONFIG"`
	Verbose bool   `short:"v" help:"Enable debug logging"`

	Search SearchCmd `cmd:"" help:"Search a location and add new clinics"`
	Scan   ScanCmd   `cmd:"" help:"Search every province (81 queries)"`
	List   ListCmd   `cmd:"" help:"List stored clinics"`
	Status StatusCmd `cmd:"" help:"Set the contact status of a clinic"`
	Note   NoteCmd   `cmd:"" help:"Set the note of a clinic"`
	Export ExportCmd `cmd:"" help:"Export clinics as CSV"`
	Stats  StatsCmd  `cmd:"" help:"Show counts by status and city"`
	Key    KeyCmd    `cmd:"" help:"Save the Gemini API key"`
	Import ImportCmd `cmd:"" help:"Replace all clinics from a JSON backup"`
	Serve  ServeCmd  `cmd:"" help:"Serve the HTTP API"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Location []string `arg:"" help:"City, district or region"`
}

// ScanCmd is the "scan" subcommand.
type ScanCmd struct {
	Force bool `short:"f" help:"Confirm the full scan"`
}

// FilterFlags select clinics by annotation and location.
type FilterFlags struct {
	Status   string `short:"s" help:"Only clinics with this status (none, contacted, positive, negative)"`
	City     string `help:"Only clinics in this city"`
	District string `help:"Only clinics in this district"`
	Query    string `short:"q" help:"Only clinics whose name, address or phone contains this text"`
}

// ListCmd is the "list" subcommand.
type ListCmd struct {
	FilterFlags
	JSON bool `help:"Print JSON"`
}

// StatusCmd is the "status" subcommand.
type StatusCmd struct {
	ID     string `arg:"" help:"Clinic ID or unique ID prefix"`
	Status string `arg:"" help:"none, contacted, positive or negative"`
}

// NoteCmd is the "note" subcommand.
type NoteCmd struct {
	ID   string   `arg:"" help:"Clinic ID or unique ID prefix"`
	Note []string `arg:"" optional:"" help:"Note text; empty clears the note"`
}

// ExportCmd is the "export" subcommand.
type ExportCmd struct {
	FilterFlags
	Output string `short:"o" help:"Output file, '-' for stdout (default dental_liste_<date>.csv)"`
}

// StatsCmd is the "stats" subcommand.
type StatsCmd struct{}

// KeyCmd is the "key" subcommand.
type KeyCmd struct {
	Key string `arg:"" optional:"" help:"API key; read from stdin when omitted"`
}

// ImportCmd is the "import" subcommand.
type ImportCmd struct {
	File  string `arg:"" type:"existingfile" help:"JSON file with a list of clinics"`
	Force bool   `short:"f" help:"Confirm replacing all stored clinics"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr string `help:"Listen address (default from config)"`
}
