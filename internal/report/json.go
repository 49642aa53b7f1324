package report

import (
	"encoding/json"
	"io"
)

type jsonReport struct {
	Files  []File `json:"files"`
	Totals Totals `json:"totals"`
}

// JSON writes the report as one indented JSON document.
func JSON(w io.Writer, files []File) error {
	if files == nil {
		files = []File{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(jsonReport{Files: files, Totals: Summarize(files)})
}
