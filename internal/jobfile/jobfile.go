// Package jobfile reads merge job descriptions from YAML, TOML or JSON files.
//
// A job names its sources, the output, optional cleanup steps and any
// decisions answered up front:
//
//	output:
//	  format: csv
//	  path: merged.csv
//	sources:
//	  - path: january.csv
//	    dedup: true
//	  - path: q1.xlsx
//	    sheets:
//	      - name: Summary
//	        header: false
//	  - path: exports.zip
//	    members:
//	      raw.csv: {header: false}
//	      book.xlsx:
//	        sheets: [{name: Detail}]
//	cleanup:
//	  trim: true
//	decisions:
//	  notation: comma
//
// Relative paths resolve against the directory holding the job file.
// Header defaults to true everywhere.
package jobfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/tabmerge/internal/core"
)

// Job is one merge job description.
type Job struct {
	Output    Output    `yaml:"output" toml:"output" json:"output"`
	Sources   []Source  `yaml:"sources" toml:"sources" json:"sources"`
	Cleanup   Cleanup   `yaml:"cleanup" toml:"cleanup" json:"cleanup"`
	Decisions Decisions `yaml:"decisions" toml:"decisions" json:"decisions"`

	// Strict aborts on the first unreadable source instead of skipping it.
	Strict bool `yaml:"strict" toml:"strict" json:"strict"`

	baseDir string
}

// Output selects the output file.
type Output struct {
	Format string `yaml:"format" toml:"format" json:"format"`
	Path   string `yaml:"path" toml:"path" json:"path"`
}

// Source is one input file.
type Source struct {
	Path      string            `yaml:"path" toml:"path" json:"path"`
	Format    string            `yaml:"format" toml:"format" json:"format"`
	Header    *bool             `yaml:"header" toml:"header" json:"header"`
	Dedup     bool              `yaml:"dedup" toml:"dedup" json:"dedup"`
	Sheets    []Sheet           `yaml:"sheets" toml:"sheets" json:"sheets"`
	AllSheets bool              `yaml:"allSheets" toml:"allSheets" json:"allSheets"`
	Members   map[string]Member `yaml:"members" toml:"members" json:"members"`
}

// Sheet selects one worksheet of a workbook.
type Sheet struct {
	Name   string `yaml:"name" toml:"name" json:"name"`
	Header *bool  `yaml:"header" toml:"header" json:"header"`
	Dedup  bool   `yaml:"dedup" toml:"dedup" json:"dedup"`
}

// Member overrides the options of one archive member. Sheets and AllSheets
// apply to workbook members.
type Member struct {
	Header    *bool   `yaml:"header" toml:"header" json:"header"`
	Dedup     bool    `yaml:"dedup" toml:"dedup" json:"dedup"`
	Sheets    []Sheet `yaml:"sheets" toml:"sheets" json:"sheets"`
	AllSheets bool    `yaml:"allSheets" toml:"allSheets" json:"allSheets"`
}

// Cleanup enables optional cleanup steps.
type Cleanup struct {
	Trim               bool `yaml:"trim" toml:"trim" json:"trim"`
	NormalizeMissing   bool `yaml:"normalizeMissing" toml:"normalizeMissing" json:"normalizeMissing"`
	RemoveEmptyColumns bool `yaml:"removeEmptyColumns" toml:"removeEmptyColumns" json:"removeEmptyColumns"`
}

// Decisions answers merge questions ahead of time. Unset answers are
// asked interactively by the caller, or fail the merge when nobody can answer.
type Decisions struct {
	Notation        string `yaml:"notation" toml:"notation" json:"notation"`
	AcceptSuggested bool   `yaml:"acceptSuggested" toml:"acceptSuggested" json:"acceptSuggested"`
	HeaderIndex     *int   `yaml:"headerIndex" toml:"headerIndex" json:"headerIndex"`
	Truncate        *bool  `yaml:"truncate" toml:"truncate" json:"truncate"`
}

// Load reads and validates a job file. The encoding follows the extension:
// .yaml/.yml, .toml or .json.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	job, err := Parse(data, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	job.baseDir = filepath.Dir(abs)
	return job, nil
}

// Parse decodes and validates a job. ext is the file extension including
// the dot. Relative paths in a parsed job resolve against the working
// directory.
func Parse(data []byte, ext string) (*Job, error) {
	var job Job
	switch ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&job); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&job); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&job); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported job file type %q", ext)
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// Validate reports every problem in the job at once.
func (j *Job) Validate() error {
	var errs []string

	if j.Output.Format == "" {
		errs = append(errs, "output.format is required")
	} else if !core.Format(strings.ToLower(j.Output.Format)).IsOutput() {
		errs = append(errs, fmt.Sprintf("output.format %q must be one of: csv, tsv, txt, xlsx, json", j.Output.Format))
	}

	if len(j.Sources) == 0 {
		errs = append(errs, "at least one source is required")
	}
	for i, src := range j.Sources {
		if src.Path == "" {
			errs = append(errs, fmt.Sprintf("sources[%d].path is required", i))
		}
		for k, sh := range src.Sheets {
			if sh.Name == "" {
				errs = append(errs, fmt.Sprintf("sources[%d].sheets[%d].name is required", i, k))
			}
		}
		for name, m := range src.Members {
			for k, sh := range m.Sheets {
				if sh.Name == "" {
					errs = append(errs, fmt.Sprintf("sources[%d].members[%s].sheets[%d].name is required", i, name, k))
				}
			}
		}
	}

	if j.Decisions.Notation != "" {
		if _, err := core.ParseNotation(j.Decisions.Notation); err != nil {
			errs = append(errs, fmt.Sprintf("decisions.notation: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid job:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// MergeConfig converts the job into the core configuration.
func (j *Job) MergeConfig() core.MergeConfig {
	cfg := core.MergeConfig{
		OutputFormat: core.Format(strings.ToLower(j.Output.Format)),
		OutputPath:   j.resolve(j.Output.Path),
		Cleanup: core.CleanupOptions{
			TrimSpaces:         j.Cleanup.Trim,
			NormalizeMissing:   j.Cleanup.NormalizeMissing,
			RemoveEmptyColumns: j.Cleanup.RemoveEmptyColumns,
		},
		Strict: j.Strict,
	}

	for _, src := range j.Sources {
		sf := core.SourceFile{
			Path:      j.resolve(src.Path),
			Format:    core.Format(strings.ToLower(src.Format)),
			HasHeader: headerOrDefault(src.Header),
			Dedup:     src.Dedup,
			AllSheets: src.AllSheets,
		}
		sf.Sheets = sheetSelections(src.Sheets)
		if len(src.Members) > 0 {
			sf.Members = make(map[string]core.SourceOptions, len(src.Members))
			for name, m := range src.Members {
				sf.Members[name] = core.SourceOptions{
					HasHeader: headerOrDefault(m.Header),
					Dedup:     m.Dedup,
					Sheets:    sheetSelections(m.Sheets),
					AllSheets: m.AllSheets,
				}
			}
		}
		cfg.Sources = append(cfg.Sources, sf)
	}
	return cfg
}

// Decider returns the preset answers of the job. The output path is not
// part of it; MergeConfig carries the path when one is set.
func (j *Job) Decider() core.PresetDecider {
	notation, _ := core.ParseNotation(j.Decisions.Notation)
	return core.PresetDecider{
		Notation:        notation,
		AcceptSuggested: j.Decisions.AcceptSuggested,
		HeaderIndex:     j.Decisions.HeaderIndex,
		Truncate:        j.Decisions.Truncate,
	}
}

func (j *Job) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || j.baseDir == "" {
		return p
	}
	return filepath.Join(j.baseDir, p)
}

func sheetSelections(sheets []Sheet) []core.SheetSelection {
	var out []core.SheetSelection
	for _, sh := range sheets {
		out = append(out, core.SheetSelection{
			Name:      sh.Name,
			HasHeader: headerOrDefault(sh.Header),
			Dedup:     sh.Dedup,
		})
	}
	return out
}

func headerOrDefault(h *bool) bool {
	if h == nil {
		return true
	}
	return *h
}
