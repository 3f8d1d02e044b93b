// Package jobs loads batch generation requests from YAML or XLSX job files.
package jobs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/blog-cli/internal/model"
)

// Load reads requests from path, choosing the format by extension.
func Load(path string) ([]model.Request, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrap(err, "jobs: read file")
		}
		return ParseYAML(data)
	case ".xlsx":
		return ReadXLSX(path, XLSXOptions{})
	default:
		return nil, eris.Errorf("jobs: unsupported file type %q (want .yaml, .yml or .xlsx)", filepath.Ext(path))
	}
}

type yamlFile struct {
	Jobs []model.Request `yaml:"jobs"`
}

// ParseYAML accepts either a top-level list of jobs or a document with a
// "jobs" key.
func ParseYAML(data []byte) ([]model.Request, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, eris.Wrap(err, "jobs: parse yaml")
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var reqs []model.Request
	if node.Content[0].Kind == yaml.SequenceNode {
		if err := node.Content[0].Decode(&reqs); err != nil {
			return nil, eris.Wrap(err, "jobs: decode job list")
		}
	} else {
		var f yamlFile
		if err := node.Content[0].Decode(&f); err != nil {
			return nil, eris.Wrap(err, "jobs: decode jobs document")
		}
		reqs = f.Jobs
	}
	return clean(reqs), nil
}

// splitList splits a multi-valued cell on newlines, commas, semicolons and
// whitespace.
func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case '\n', '\r', ',', ';', ' ', '\t':
			return true
		}
		return false
	})
}

func clean(reqs []model.Request) []model.Request {
	out := make([]model.Request, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.Clean())
	}
	return out
}
