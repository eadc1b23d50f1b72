package config

import (
	"time"

	"github.com/nao1215/dupcheck/internal/workflow"
)

// File represents the structure of a .dupcheck configuration file.
//
// Example:
//
//	workflow:
//	  base_url: https://api.dify.ai
//	  user: checker
//	  timeout: 90s
//	  strict_stream: true
//	pipeline:
//	  mode: streaming
//	  concurrency: 8
//	  min_score: 0.8
//	server:
//	  addr: 127.0.0.1:8000
//	  allowed_dirs:
//	    - /srv/reports
//	history:
//	  enabled: true
//
// The API key may be set here but is normally kept in .env.
type File struct {
	Workflow WorkflowSection `yaml:"workflow"`
	Pipeline PipelineSection `yaml:"pipeline"`
	Server   ServerSection   `yaml:"server"`
	History  HistorySection  `yaml:"history"`
	Log      LogSection      `yaml:"log"`
}

// WorkflowSection configures the workflow API connection.
type WorkflowSection struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	User         string        `yaml:"user"`
	Timeout      time.Duration `yaml:"timeout"`
	StrictStream *bool         `yaml:"strict_stream"`
}

// PipelineSection configures how sentences are looked up.
type PipelineSection struct {
	Mode          string   `yaml:"mode"`
	Concurrency   int      `yaml:"concurrency"`
	SkipMalformed *bool    `yaml:"skip_malformed"`
	MinScore      *float64 `yaml:"min_score"`
}

// ServerSection configures the HTTP server.
type ServerSection struct {
	Addr            string        `yaml:"addr"`
	Workers         int           `yaml:"workers"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	AllowedDirs     []string      `yaml:"allowed_dirs"`
	UploadDir       string        `yaml:"upload_dir"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// HistorySection configures the run history database.
type HistorySection struct {
	Enabled *bool  `yaml:"enabled"`
	DBDir   string `yaml:"db_dir"`
}

// LogSection configures logging.
type LogSection struct {
	Format  string `yaml:"format"`
	Verbose *bool  `yaml:"verbose"`
}

// Apply copies every value set in the file onto cfg.
// Zero values and nil pointers leave cfg unchanged.
//
// Design decision: Booleans and the score threshold are pointers so that
// an explicit false or 0 in the file can be told apart from an omitted key.
func (f *File) Apply(cfg *Config) {
	w := f.Workflow
	setString(&cfg.BaseURL, w.BaseURL)
	setString(&cfg.APIKey, w.APIKey)
	setString(&cfg.User, w.User)
	if w.Timeout != 0 {
		cfg.Timeout = w.Timeout
	}
	setBool(&cfg.StrictStream, w.StrictStream)

	p := f.Pipeline
	setString(&cfg.Mode, p.Mode)
	if p.Concurrency != 0 {
		cfg.Concurrency = p.Concurrency
	}
	setBool(&cfg.SkipMalformed, p.SkipMalformed)
	if p.MinScore != nil {
		cfg.MinScore = *p.MinScore
	}

	s := f.Server
	setString(&cfg.Addr, s.Addr)
	if s.Workers != 0 {
		cfg.Workers = s.Workers
	}
	if s.MaxUploadBytes != 0 {
		cfg.MaxUploadBytes = s.MaxUploadBytes
	}
	if len(s.AllowedDirs) > 0 {
		cfg.AllowedDirs = append([]string(nil), s.AllowedDirs...)
	}
	setString(&cfg.UploadDir, s.UploadDir)
	if s.ShutdownTimeout != 0 {
		cfg.ShutdownTimeout = s.ShutdownTimeout
	}

	setBool(&cfg.HistoryEnabled, f.History.Enabled)
	setString(&cfg.DBDir, f.History.DBDir)

	setString(&cfg.LogFormat, f.Log.Format)
	setBool(&cfg.Verbose, f.Log.Verbose)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// WorkflowConfig returns the workflow client settings.
func (c *Config) WorkflowConfig() workflow.Config {
	return workflow.Config{
		BaseURL:      c.BaseURL,
		APIKey:       c.APIKey,
		User:         c.User,
		Timeout:      c.Timeout,
		StrictStream: c.StrictStream,
	}
}
